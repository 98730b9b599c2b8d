// Package types contains common types used across the application
package types

import "strconv"

// Entry is one scored term as shown to users.
type Entry struct {
	Rank  int    `json:"rank,omitempty"`
	Term  string `json:"term"`
	Score int64  `json:"score"`
}

// String renders the entry as "term: value".
func (e Entry) String() string {
	return e.Term + ": " + strconv.FormatInt(e.Score, 10)
}

// Bias is a relative change to a term's score.
type Bias struct {
	Term  string
	Delta int64
}
