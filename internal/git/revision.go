// Package git reads version-control metadata of the project being built.
package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// ErrNotRepository is returned when root is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Revision describes the checked-out commit of a project.
type Revision struct {
	Hash   string
	Short  string
	Branch string
	Dirty  bool
}

// ReadRevision opens the repository containing root, walking up to find the
// .git directory, and reports its HEAD.
func ReadRevision(root string) (*Revision, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	rev := &Revision{Hash: head.Hash().String()}
	rev.Short = rev.Hash
	if len(rev.Short) > 7 {
		rev.Short = rev.Short[:7]
	}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return rev, nil
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	rev.Dirty = !status.IsClean()
	return rev, nil
}
