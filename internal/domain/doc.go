// Package domain defines the core types shared across the outreach service:
// target companies, sent-email records, daily send schedules, and content
// templates.
//
// Domain types carry no behavior beyond small helpers and have no external
// dependencies. Services and repositories in internal/ operate on these
// types; handlers should never define their own copies.
package domain
