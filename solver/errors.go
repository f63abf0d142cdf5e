package solver

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidNode reports an edge operation on a node never added to the
// graph. This is a programmer error, not a search failure.
var ErrInvalidNode = errors.New("node is not part of the graph")

// A RepositoryError wraps an I/O, remote-API or parse failure raised while
// querying a repository. Repository errors short-circuit the current
// branch and propagate; they are never cached.
type RepositoryError struct {
	Repo string
	Err  error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %s", e.Repo, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

func repoErr(repo string, err error) error {
	if err == nil {
		return nil
	}
	if re := (*RepositoryError)(nil); errors.As(err, &re) {
		return err
	}
	return &RepositoryError{Repo: repo, Err: err}
}

// A ParseError reports malformed input: a depend string, a recipe file, a
// config file.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// A MissingDependencyError is returned when no repository can produce a
// candidate for a required name.
type MissingDependencyError struct {
	Name string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("no candidate found for required dependency %q", e.Name)
}

// A ConflictDependencyError is returned when no combination of candidates
// merges into a compatible solution.
type ConflictDependencyError struct {
	Reason string
}

func (e *ConflictDependencyError) Error() string {
	return fmt.Sprintf("conflicting dependencies: %s", e.Reason)
}

// A CyclicDependencyError is returned when the search exhausts without an
// accepted cycle. Component holds the offending strongly-connected group.
type CyclicDependencyError struct {
	Component []Package
}

func (e *CyclicDependencyError) Error() string {
	var buf bytes.Buffer
	buf.WriteString("unacceptable dependency cycle:")
	for _, p := range e.Component {
		fmt.Fprintf(&buf, "\n\t%s", p)
	}
	return buf.String()
}

// A DepthExceededError guards against pathological inputs; treat it as a
// non-recoverable search failure.
type DepthExceededError struct {
	Limit int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("resolution exceeded the depth limit of %d stages", e.Limit)
}
