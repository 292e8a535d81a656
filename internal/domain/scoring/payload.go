package scoring

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ErrNotObject is returned when a webhook body is not a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Payload holds the webhook fields that matter for scoring and crediting.
// Fields are decoded independently so a malformed field degrades to its
// zero value instead of failing the whole delivery.
type Payload struct {
	Action string

	// Commits is nil when the payload carries no commit list.
	Commits []json.RawMessage

	// PullRequestMerged is false when pull_request or pull_request.merged is absent.
	PullRequestMerged bool

	// Repository is the "owner/repo" full name, empty when absent.
	Repository string

	// SenderID is the numeric GitHub account id rendered as a string, empty when absent.
	SenderID    string
	SenderLogin string
}

// ParsePayload decodes raw into a Payload. Only a body that is not a JSON
// object is an error.
func ParsePayload(raw []byte) (Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Payload{}, ErrNotObject
	}

	var p Payload
	_ = json.Unmarshal(fields["action"], &p.Action)

	if c, ok := fields["commits"]; ok {
		var commits []json.RawMessage
		if err := json.Unmarshal(c, &commits); err == nil && commits != nil {
			p.Commits = commits
		}
	}

	var pr struct {
		Merged bool `json:"merged"`
	}
	if err := json.Unmarshal(fields["pull_request"], &pr); err == nil {
		p.PullRequestMerged = pr.Merged
	}

	var repo struct {
		FullName string `json:"full_name"`
	}
	if err := json.Unmarshal(fields["repository"], &repo); err == nil {
		p.Repository = repo.FullName
	}

	var sender struct {
		ID    json.Number `json:"id"`
		Login string      `json:"login"`
	}
	if err := json.Unmarshal(fields["sender"], &sender); err == nil {
		p.SenderLogin = sender.Login
		if id, err := strconv.ParseInt(sender.ID.String(), 10, 64); err == nil {
			p.SenderID = strconv.FormatInt(id, 10)
		}
	}
	return p, nil
}
