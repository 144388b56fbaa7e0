// Package gitrepo keeps one git repository per page holding the page's
// content.json, so every save is a restorable revision.
package gitrepo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"storefront/cms/internal/content"
)

const contentFile = "content.json"

var (
	ErrNoRevisions     = errors.New("page has no revisions")
	ErrUnknownRevision = errors.New("unknown revision")
)

type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	now     func() time.Time
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// CommitContent writes doc as the page's next revision, creating the
// repository on first use. Saving content identical to the head revision
// does not create a commit; the head revision is returned with changed=false.
func (s *Service) CommitContent(pageID string, doc content.Document, author, message string) (Revision, bool, error) {
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	payload, err := encode(doc)
	if err != nil {
		return Revision{}, false, err
	}

	repo, fresh, err := s.openOrInit(pageID)
	if err != nil {
		return Revision{}, false, err
	}

	if !fresh {
		head, err := headCommit(repo)
		switch {
		case errors.Is(err, plumbing.ErrReferenceNotFound):
			fresh = true
		case err != nil:
			return Revision{}, false, err
		}
		if head != nil {
			current, err := readContent(head)
			if err == nil {
				currentPayload, encErr := encode(current)
				if encErr == nil && bytes.Equal(currentPayload, payload) {
					return toRevision(head), false, nil
				}
			}
		}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, false, fmt.Errorf("open worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.repoPath(pageID), contentFile), payload, 0o644); err != nil {
		return Revision{}, false, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return Revision{}, false, fmt.Errorf("git add content: %w", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@storefront.local", sanitizeEmail(author)),
			When:  s.now(),
		},
	})
	if err != nil {
		return Revision{}, false, fmt.Errorf("commit content: %w", err)
	}
	if fresh {
		if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
			return Revision{}, false, fmt.Errorf("set main branch ref: %w", err)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
			return Revision{}, false, fmt.Errorf("set HEAD to main: %w", err)
		}
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, false, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), true, nil
}

// History lists revisions newest first. A page that was never committed has
// an empty history.
func (s *Service) History(pageID string, limit int) ([]Revision, error) {
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	items := make([]Revision, 0)
	repo, err := git.PlainOpen(s.repoPath(pageID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return items, nil
		}
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj))
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

// ContentAt reads the document stored at hash, which may be abbreviated.
func (s *Service) ContentAt(pageID, hash string) (content.Document, Revision, error) {
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(pageID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return content.Document{}, Revision{}, ErrNoRevisions
	}
	if err != nil {
		return content.Document{}, Revision{}, fmt.Errorf("open repo: %w", err)
	}

	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return content.Document{}, Revision{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return content.Document{}, Revision{}, fmt.Errorf("%w: %s", ErrUnknownRevision, hash)
	}
	if err != nil {
		return content.Document{}, Revision{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	doc, err := readContent(commitObj)
	if err != nil {
		return content.Document{}, Revision{}, err
	}
	return doc, toRevision(commitObj), nil
}

// Remove deletes the page's repository. Missing repositories are ignored.
func (s *Service) Remove(pageID string) error {
	lock := s.pageLock(pageID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(pageID)); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	return nil
}

func (s *Service) openOrInit(pageID string) (*git.Repository, bool, error) {
	path := s.repoPath(pageID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, false, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, false, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, false, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, false, fmt.Errorf("init repo: %w", err)
	}
	return repo, true, nil
}

func (s *Service) repoPath(pageID string) string {
	return filepath.Join(s.baseDir, pageID)
}

func (s *Service) pageLock(pageID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[pageID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[pageID] = lock
	return lock
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load head commit: %w", err)
	}
	return commitObj, nil
}

func encode(doc content.Document) ([]byte, error) {
	payload, err := json.MarshalIndent(doc.Normalized(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}
	return append(payload, '\n'), nil
}

func readContent(commitObj *object.Commit) (content.Document, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return content.Document{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return content.Document{}, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return content.Document{}, fmt.Errorf("read content bytes: %w", err)
	}

	var doc content.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return content.Document{}, fmt.Errorf("decode commit content: %w", err)
	}
	return doc.Normalized(), nil
}

func toRevision(commitObj *object.Commit) Revision {
	return Revision{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
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
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrUnknownRevision, hash)
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
