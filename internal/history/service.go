// Package history records every accepted config document as a commit in a
// local git repository so earlier revisions can be listed and restored.
package history

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	documentFile = "config.json"
	branchName   = "main"
)

var ErrRevisionNotFound = errors.New("revision not found")

type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Added     int       `json:"added"`
	Removed   int       `json:"removed"`
}

type Service struct {
	dir string
	mu  sync.Mutex
}

// Open prepares the repository at dir, initialising it on first use.
func Open(dir string) (*Service, error) {
	s := &Service{dir: dir}
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) ensureRepo() error {
	if _, err := os.Stat(filepath.Join(s.dir, ".git")); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(s.dir, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branchName))); err != nil {
		return fmt.Errorf("set HEAD to %s: %w", branchName, err)
	}
	return nil
}

// Record commits doc as the newest revision. When doc matches the current
// head nothing is written and ok is false.
func (s *Service) Record(doc []byte, author, message string) (rev Revision, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return Revision{}, false, fmt.Errorf("open repo: %w", err)
	}

	payload := ensureTrailingNewline(doc)
	previous, err := headDocument(repo)
	if err != nil {
		return Revision{}, false, err
	}
	if previous != nil && bytes.Equal(previous, payload) {
		return Revision{}, false, nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, false, fmt.Errorf("open worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, documentFile), payload, 0o644); err != nil {
		return Revision{}, false, fmt.Errorf("write %s: %w", documentFile, err)
	}
	if _, err := worktree.Add(documentFile); err != nil {
		return Revision{}, false, fmt.Errorf("git add %s: %w", documentFile, err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@localhost", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return Revision{}, false, fmt.Errorf("commit %s: %w", documentFile, err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, false, fmt.Errorf("read commit object: %w", err)
	}
	added, removed := lineDelta(previous, payload)
	return toRevision(commitObj, added, removed), true, nil
}

// List returns up to limit revisions, newest first. A limit of zero or less
// returns all of them.
func (s *Service) List(limit int) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []Revision{}, nil
		}
		return nil, fmt.Errorf("resolve branch %s: %w", branchName, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		current, err := readDocument(commitObj)
		if err != nil {
			return err
		}
		var parentDoc []byte
		if commitObj.NumParents() > 0 {
			parent, err := commitObj.Parent(0)
			if err != nil {
				return fmt.Errorf("load parent commit: %w", err)
			}
			if parentDoc, err = readDocument(parent); err != nil {
				return err
			}
		}
		added, removed := lineDelta(parentDoc, current)
		items = append(items, toRevision(commitObj, added, removed))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Get returns the document stored at the revision named by hash, which may
// be abbreviated.
func (s *Service) Get(hash string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, hash)
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return readDocument(commitObj)
}

func headDocument(repo *git.Repository) ([]byte, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve branch %s: %w", branchName, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	return readDocument(commitObj)
}

func readDocument(commitObj *object.Commit) ([]byte, error) {
	file, err := commitObj.File(documentFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", documentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read content bytes: %w", err)
	}
	return payload, nil
}

// lineDelta counts lines added and removed going from before to after.
func lineDelta(before, after []byte) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if n == 0 && d.Text != "" {
			n = 1
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

func toRevision(commitObj *object.Commit, added, removed int) Revision {
	return Revision{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
		Added:     added,
		Removed:   removed,
	}
}

func ensureTrailingNewline(doc []byte) []byte {
	out := make([]byte, 0, len(doc)+1)
	out = append(out, doc...)
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return plumbing.ZeroHash, fmt.Errorf("%w: empty hash", ErrRevisionNotFound)
	}
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrRevisionNotFound, hash)
	}
	return *resolved, nil
}
