// Package webhook turns inbound source-control provider events into row
// mutations. Parsing is strict at the boundary: every event name maps to one
// typed payload, and anything else is rejected before it reaches the
// normalizer.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrBadPayload   = errors.New("malformed event payload")
)

// Event is the closed set of provider events this system consumes.
type Event interface {
	eventName() string
}

const (
	eventPush              = "push"
	eventPullRequest       = "pull_request"
	eventWorkflowRun       = "workflow_run"
	eventPullRequestReview = "pull_request_review"
)

type PushEvent struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	HeadCommit struct {
		Message string `json:"message"`
	} `json:"head_commit"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
}

func (PushEvent) eventName() string { return eventPush }

type PullRequestEvent struct {
	Action      string `json:"action"`
	Number      int64  `json:"number"`
	PullRequest struct {
		Number       int64  `json:"number"`
		Title        string `json:"title"`
		Body         string `json:"body"`
		Draft        bool   `json:"draft"`
		Merged       bool   `json:"merged"`
		Additions    int    `json:"additions"`
		Deletions    int    `json:"deletions"`
		ChangedFiles int    `json:"changed_files"`
		Mergeable    *bool  `json:"mergeable"`
		User         struct {
			Login string `json:"login"`
		} `json:"user"`
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
}

func (PullRequestEvent) eventName() string { return eventPullRequest }

type WorkflowRunEvent struct {
	Action      string `json:"action"`
	WorkflowRun struct {
		Name         string `json:"name"`
		Path         string `json:"path"`
		Status       string `json:"status"`
		Conclusion   string `json:"conclusion"`
		HeadSHA      string `json:"head_sha"`
		PullRequests []struct {
			Number int64 `json:"number"`
		} `json:"pull_requests"`
	} `json:"workflow_run"`
}

func (WorkflowRunEvent) eventName() string { return eventWorkflowRun }

type ReviewEvent struct {
	Action string `json:"action"`
	Review struct {
		State string `json:"state"`
		Body  string `json:"body"`
		User  struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"review"`
	PullRequest struct {
		Number int64 `json:"number"`
	} `json:"pull_request"`
}

func (ReviewEvent) eventName() string { return eventPullRequestReview }

// ParseEvent decodes the raw body for the named event. Required fields are
// validated here so downstream code never sees a half-formed event.
func ParseEvent(name string, body []byte) (Event, error) {
	switch name {
	case eventPush:
		var evt PushEvent
		if err := decode(body, &evt); err != nil {
			return nil, err
		}
		if evt.Ref == "" || evt.After == "" {
			return nil, fmt.Errorf("%w: push requires ref and after", ErrBadPayload)
		}
		return evt, nil

	case eventPullRequest:
		var evt PullRequestEvent
		if err := decode(body, &evt); err != nil {
			return nil, err
		}
		if evt.Action == "" || evt.PullRequest.Number == 0 {
			return nil, fmt.Errorf("%w: pull_request requires action and number", ErrBadPayload)
		}
		return evt, nil

	case eventWorkflowRun:
		var evt WorkflowRunEvent
		if err := decode(body, &evt); err != nil {
			return nil, err
		}
		if evt.WorkflowRun.HeadSHA == "" {
			return nil, fmt.Errorf("%w: workflow_run requires head_sha", ErrBadPayload)
		}
		return evt, nil

	case eventPullRequestReview:
		var evt ReviewEvent
		if err := decode(body, &evt); err != nil {
			return nil, err
		}
		if evt.PullRequest.Number == 0 || evt.Review.User.Login == "" {
			return nil, fmt.Errorf("%w: review requires pull request number and reviewer", ErrBadPayload)
		}
		return evt, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

func decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}
