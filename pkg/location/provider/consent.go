package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/location"
)

// Consent file names.
const (
	LocationConsentFile = "location-consent.json"
	MediaConsentFile    = "media-consent.json"
)

// consentRecord is the persisted permission decision.
type consentRecord struct {
	Decision  location.Permission `json:"decision"`
	DecidedAt time.Time           `json:"decided_at"`
}

// ConsentStore persists the foreground location decision as a JSON file.
// A stored decision is final until Clear is called, which mirrors a
// permanent OS-level grant or denial.
type ConsentStore struct {
	mu   sync.RWMutex
	path string
}

// NewConsentStore creates the location consent store in dir, creating the
// directory if needed.
func NewConsentStore(dir string) (*ConsentStore, error) {
	return NewConsentStoreFile(dir, LocationConsentFile)
}

// NewConsentStoreFile creates a consent store backed by dir/name.
func NewConsentStoreFile(dir, name string) (*ConsentStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create consent dir: %w", err)
	}
	return &ConsentStore{path: filepath.Join(dir, name)}, nil
}

// Load returns the stored decision, or PermissionUndetermined when none exists.
func (s *ConsentStore) Load(ctx context.Context) (location.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return location.PermissionUndetermined, nil
		}
		return location.PermissionUndetermined, fmt.Errorf("read consent file: %w", err)
	}

	var rec struct {
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		// Corrupt record: forget it and ask again.
		_ = os.Remove(s.path)
		return location.PermissionUndetermined, nil
	}
	switch rec.Decision {
	case "granted":
		return location.PermissionGranted, nil
	case "denied":
		return location.PermissionDenied, nil
	default:
		return location.PermissionUndetermined, nil
	}
}

// Save persists a decision. Undetermined clears the record.
func (s *ConsentStore) Save(ctx context.Context, p location.Permission) error {
	if p == location.PermissionUndetermined {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(consentRecord{Decision: p, DecidedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal consent: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write consent file: %w", err)
	}
	return nil
}

// Clear forgets the stored decision so the next request prompts again.
func (s *ConsentStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove consent file: %w", err)
	}
	return nil
}

// Path returns the consent file path.
func (s *ConsentStore) Path() string {
	return s.path
}

// =============================================================================
// Prompting
// =============================================================================

// Questions shown when asking for a decision.
const (
	PermissionQuestion = "Allow StickerSmash to access your location while you use the app?"
	MediaQuestion      = "Allow StickerSmash to save photos to your library?"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Prompt(ctx context.Context, question string) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, question string) (bool, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// ReaderPrompter prompts on a line-oriented terminal.
type ReaderPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewReaderPrompter creates a prompter reading answers from in and writing
// the question to out.
func NewReaderPrompter(in io.Reader, out io.Writer) *ReaderPrompter {
	return &ReaderPrompter{in: bufio.NewReader(in), out: out}
}

// Prompt writes the question and reads one line. Only "y" or "yes" grants.
func (p *ReaderPrompter) Prompt(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// =============================================================================
// Permissions
// =============================================================================

// Permissions implements the foreground permission request on top of a
// consent store and an optional prompter. It prompts at most once per call
// and never when a decision is already stored.
type Permissions struct {
	store    *ConsentStore
	prompter Prompter
	question string
	logger   *log.Logger
}

// NewPermissions creates a permission requester. A nil prompter means the
// user cannot be asked, so undetermined requests stay undetermined.
func NewPermissions(store *ConsentStore, prompter Prompter, logger *log.Logger) *Permissions {
	if logger == nil {
		logger = log.Default()
	}
	return &Permissions{store: store, prompter: prompter, question: PermissionQuestion, logger: logger}
}

// NewMediaPermissions is NewPermissions for media-library write access.
func NewMediaPermissions(store *ConsentStore, prompter Prompter, logger *log.Logger) *Permissions {
	p := NewPermissions(store, prompter, logger)
	p.question = MediaQuestion
	return p
}

// Status returns the stored decision without prompting.
func (p *Permissions) Status(ctx context.Context) (location.Permission, error) {
	return p.store.Load(ctx)
}

// Request returns the stored decision or prompts for one.
func (p *Permissions) Request(ctx context.Context) (location.Permission, error) {
	stored, err := p.store.Load(ctx)
	if err != nil {
		return location.PermissionUndetermined, err
	}
	if stored != location.PermissionUndetermined {
		p.logger.Debug("using stored decision", "file", filepath.Base(p.store.Path()), "decision", stored)
		return stored, nil
	}
	if p.prompter == nil {
		p.logger.Debug("no prompter available, leaving permission undetermined")
		return location.PermissionUndetermined, nil
	}

	ok, err := p.prompter.Prompt(ctx, p.question)
	if err != nil {
		return location.PermissionUndetermined, fmt.Errorf("prompt: %w", err)
	}
	decision := location.PermissionDenied
	if ok {
		decision = location.PermissionGranted
	}
	if err := p.store.Save(ctx, decision); err != nil {
		return decision, err
	}
	p.logger.Info("permission decided", "question", p.question, "decision", decision)
	return decision, nil
}
