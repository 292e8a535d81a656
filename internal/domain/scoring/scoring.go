// Package scoring maps GitHub webhook events to experience points.
package scoring

import "fmt"

// GitHub event types with dedicated rules.
const (
	EventPush        = "push"
	EventPullRequest = "pull_request"
	EventIssues      = "issues"
)

// Point values.
const (
	xpPerCommit     = 10
	xpPROpened      = 50
	xpPRMerged      = 100
	xpIssueOpened   = 20
	xpIssueClosed   = 30
	xpDefault       = 5
	defaultCommits  = 1
	messageFallback = "Contribution"
)

// Result is the XP delta and human-readable description of one event.
type Result struct {
	XP      int64
	Message string
}

// Scorer computes the XP earned by an event.
type Scorer interface {
	Score(eventType string, p Payload) Result
}

// GitHubScorer implements the fixed GitHub scoring table.
type GitHubScorer struct{}

// NewGitHubScorer returns the default scorer.
func NewGitHubScorer() GitHubScorer { return GitHubScorer{} }

// Score implements Scorer.
func (GitHubScorer) Score(eventType string, p Payload) Result {
	return Score(eventType, p)
}

// Score is total: every input yields a result, never a panic.
func Score(eventType string, p Payload) Result {
	switch eventType {
	case EventPush:
		commits := defaultCommits
		if p.Commits != nil {
			commits = len(p.Commits)
		}
		return Result{
			XP:      int64(xpPerCommit * max(1, commits)),
			Message: fmt.Sprintf("Pushed %d commit(s)", commits),
		}
	case EventPullRequest:
		switch {
		case p.Action == "opened":
			return Result{XP: xpPROpened, Message: "Opened a Pull Request"}
		case p.Action == "closed" && p.PullRequestMerged:
			return Result{XP: xpPRMerged, Message: "Merged a Pull Request"}
		}
		return Result{}
	case EventIssues:
		switch p.Action {
		case "opened":
			return Result{XP: xpIssueOpened, Message: "Opened an Issue"}
		case "closed":
			return Result{XP: xpIssueClosed, Message: "Closed an Issue"}
		}
		return Result{}
	default:
		return Result{XP: xpDefault, Message: messageFallback}
	}
}
