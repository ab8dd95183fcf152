// Package confirm provides the policies that decide whether a duplicate group
// may be merged.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"course-dedupe/internal/dedupe"
)

// Policy names accepted by FromName.
const (
	PolicyPrompt    = "prompt"
	PolicyAlways    = "always"
	PolicyNever     = "never"
	PolicyAllowList = "allowlist"
)

// Always merges every group.
func Always() dedupe.Confirmer {
	return dedupe.ConfirmFunc(func(context.Context, *dedupe.MergeDecision) (bool, error) {
		return true, nil
	})
}

// Never merges nothing.
func Never() dedupe.Confirmer {
	return dedupe.ConfirmFunc(func(context.Context, *dedupe.MergeDecision) (bool, error) {
		return false, nil
	})
}

// AllowList merges a group only when the course it would keep is listed.
func AllowList(courseIDs ...string) dedupe.Confirmer {
	allowed := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = true
		}
	}
	return dedupe.ConfirmFunc(func(_ context.Context, d *dedupe.MergeDecision) (bool, error) {
		return allowed[d.Retain.ID], nil
	})
}

type prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// Prompt asks on out and reads a y/N answer from in for every group.
// Anything but "y" or "yes" is a no.
func Prompt(in io.Reader, out io.Writer) dedupe.Confirmer {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) Confirm(ctx context.Context, d *dedupe.MergeDecision) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\nGroup %d: keep %q (%s, score %.1f)\n", d.Group, d.Retain.Title, d.Retain.ID, d.Retain.Score)
	for _, o := range d.Discard {
		fmt.Fprintf(p.out, "  merge and delete %q (%s, score %.1f, %d chapters, %d purchases)\n",
			o.Course.Title, o.Course.ID, o.Course.Score, o.Course.Chapters, o.Course.Purchases)
	}
	fmt.Fprint(p.out, "Proceed? [y/N]: ")

	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("confirm: read answer: %w", err)
		}
		if line == "" {
			return false, fmt.Errorf("confirm: no answer: %w", err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true, nil
	default:
		return false, nil
	}
}

// FromName builds the named policy. allow is only used by "allowlist".
func FromName(name string, allow []string, in io.Reader, out io.Writer) (dedupe.Confirmer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyPrompt, "":
		return Prompt(in, out), nil
	case PolicyAlways:
		return Always(), nil
	case PolicyNever:
		return Never(), nil
	case PolicyAllowList:
		if len(allow) == 0 {
			return nil, errors.New("confirm: allowlist policy needs at least one course id")
		}
		return AllowList(allow...), nil
	default:
		return nil, fmt.Errorf("confirm: unknown policy %q", name)
	}
}
