package models

import "strings"

// Site is one configured feed source with its destinations and expiry policy
type Site struct {
	Id  string `json:"id"`
	Url string `json:"url"`
	// Seconds a delivered item stays deduplicated. Negative means forever.
	ExpireDelay int `json:"expireDelay"`
	// Character budget of one composed message, 0 uses the global default
	MessageLimit int     `json:"messageLimit,omitempty"`
	Chats        []int64 `json:"chats"`
}

// Item is a single entry parsed from a feed document
type Item struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// HasTitle reports whether the item carries a usable dedup key
func (i Item) HasTitle() bool {
	return strings.TrimSpace(i.Title) != ""
}

// PipelineResult is the outcome of one pipeline run for one site
type PipelineResult struct {
	Site     string   `json:"site"`
	Message  string   `json:"message"`
	Accepted []string `json:"accepted"`
}

// Empty results are never delivered
func (r PipelineResult) Empty() bool {
	return len(r.Accepted) == 0
}

// SiteResult pairs a pipeline result with the error of its run, if any
type SiteResult struct {
	Result PipelineResult `json:"result"`
	Err    error          `json:"-"`
}
