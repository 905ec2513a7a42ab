// Package backup copies the entry table to a remote folder: automatically at
// most once per calendar day, or manually on demand.
package backup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/study-time-tracker/internal/model"
)

var (
	// ErrRemoteUnavailable wraps every failure of the remote collaborator.
	ErrRemoteUnavailable = errors.New("remote storage unavailable")
	// ErrNoFolder is returned by every operation when the backup folder
	// could not be resolved at construction time.
	ErrNoFolder = errors.New("backup folder unavailable")
	// ErrUnsupported is returned when the remote cannot perform an optional
	// operation.
	ErrUnsupported = errors.New("operation not supported by remote")
	// ErrUnknownBackup is returned when an id is not a file in the backup
	// folder.
	ErrUnknownBackup = errors.New("no such backup")
)

// RemoteFile is a file listed in a remote folder.
type RemoteFile struct {
	ID          string
	Name        string
	CreatedAt   time.Time
	DownloadURL string
}

// Remote is the storage provider the coordinator uploads to.
type Remote interface {
	// FindOrCreateFolder returns the id of the folder called name under
	// root, creating it if needed.
	FindOrCreateFolder(ctx context.Context, name, root string) (string, error)
	// Upload copies the local file to parentID under displayName and
	// returns the remote id.
	Upload(ctx context.Context, filePath, displayName, parentID string) (string, error)
	// List returns the files directly inside parentID.
	List(ctx context.Context, parentID string) ([]RemoteFile, error)
}

// Deleter is implemented by remotes that can remove a file.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Kind distinguishes automatic from manual backups.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindManual Kind = "manual"
)

// Naming conventions for uploaded files.
const (
	autoPrefix   = "AutoBackup_"
	manualPrefix = "StudyLog_backup_"
)

// AutoName returns the file name of the automatic backup for day.
func AutoName(day time.Time) string {
	return autoPrefix + day.Format(model.DateLayout) + ".csv"
}

// ManualName returns the file name of a manual backup taken at t.
func ManualName(t time.Time) string {
	return manualPrefix + t.Format("2006-01-02-15-04-05") + ".csv"
}

// KindOf derives the backup kind from a file name.
func KindOf(name string) Kind {
	if strings.HasPrefix(name, autoPrefix) {
		return KindAuto
	}
	return KindManual
}

// Backup is one file in the backup folder.
type Backup struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	DownloadURL string    `json:"download_url"`
	Kind        Kind      `json:"kind"`
}

// Options configures a Coordinator.
type Options struct {
	// FolderName is the remote folder that holds the backups.
	FolderName string
	// Root is the parent the folder is looked up in.
	Root string
	// SentinelPath is the local file recording the last automatic backup.
	SentinelPath string
	// Now returns the current time.
	Now func() time.Time
}

// DefaultFolderName is the remote folder used when none is configured.
const DefaultFolderName = "StudyLog_Autobackups"

// Coordinator decides when to back up and talks to the remote. The folder
// is resolved once, in New.
type Coordinator struct {
	remote    Remote
	opts      Options
	sentinel  sentinel
	folderID  string
	folderErr error
}

// New resolves the backup folder and returns a Coordinator. A resolution
// failure is not returned here; it is cached and reported by every later
// upload or list call.
func New(ctx context.Context, remote Remote, opts Options) *Coordinator {
	if opts.FolderName == "" {
		opts.FolderName = DefaultFolderName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Coordinator{
		remote:   remote,
		opts:     opts,
		sentinel: sentinel{path: opts.SentinelPath},
	}
	id, err := remote.FindOrCreateFolder(ctx, opts.FolderName, opts.Root)
	switch {
	case err != nil:
		c.folderErr = fmt.Errorf("%w: %w: %v", ErrNoFolder, ErrRemoteUnavailable, err)
	case id == "":
		c.folderErr = fmt.Errorf("%w: remote returned an empty folder id", ErrNoFolder)
	default:
		c.folderID = id
	}
	return c
}

// FolderID returns the resolved folder id, or "" if resolution failed.
func (c *Coordinator) FolderID() string { return c.folderID }

// Available reports whether the backup folder was resolved.
func (c *Coordinator) Available() error { return c.folderErr }

// IsBackedUpToday reports whether the sentinel records today's date.
func (c *Coordinator) IsBackedUpToday() bool {
	last, ok := c.sentinel.read()
	return ok && last == c.opts.Now().Format(model.DateLayout)
}

// LastAutoBackup returns the date stored in the sentinel, if any.
func (c *Coordinator) LastAutoBackup() (string, bool) {
	return c.sentinel.read()
}

// AutoResult describes what RunAutoBackupIfNeeded did.
type AutoResult struct {
	// Skipped is true when today's backup already exists.
	Skipped bool
	// Name is the uploaded file name.
	Name string
	// RemoteID is the id the remote assigned.
	RemoteID string
}

// RunAutoBackupIfNeeded uploads entryFile once per calendar day. The
// sentinel is only advanced after a successful upload; failures leave the
// state unchanged so the caller may try again later.
func (c *Coordinator) RunAutoBackupIfNeeded(ctx context.Context, entryFile string) (AutoResult, error) {
	if c.IsBackedUpToday() {
		return AutoResult{Skipped: true}, nil
	}
	now := c.opts.Now()
	name := AutoName(now)
	id, err := c.upload(ctx, entryFile, name)
	if err != nil {
		return AutoResult{}, err
	}
	if err := c.sentinel.write(now.Format(model.DateLayout)); err != nil {
		return AutoResult{Name: name, RemoteID: id}, fmt.Errorf("backup uploaded but sentinel not written: %w", err)
	}
	return AutoResult{Name: name, RemoteID: id}, nil
}

// ManualBackup uploads entryFile under a timestamped name and returns that
// name. It does not touch the sentinel.
func (c *Coordinator) ManualBackup(ctx context.Context, entryFile string) (string, error) {
	name := ManualName(c.opts.Now())
	if _, err := c.upload(ctx, entryFile, name); err != nil {
		return "", err
	}
	return name, nil
}

func (c *Coordinator) upload(ctx context.Context, entryFile, name string) (string, error) {
	if c.folderErr != nil {
		return "", c.folderErr
	}
	id, err := c.remote.Upload(ctx, entryFile, name, c.folderID)
	if err != nil {
		return "", fmt.Errorf("%w: uploading %s: %v", ErrRemoteUnavailable, name, err)
	}
	return id, nil
}

// ListBackups returns the files in the backup folder, newest first. The
// slice is never nil; on failure it is empty and the error describes why.
// Callers should treat that error as a status, not a fatal condition.
func (c *Coordinator) ListBackups(ctx context.Context) ([]Backup, error) {
	out := []Backup{}
	if c.folderErr != nil {
		return out, c.folderErr
	}
	files, err := c.remote.List(ctx, c.folderID)
	if err != nil {
		return out, fmt.Errorf("%w: listing backups: %v", ErrRemoteUnavailable, err)
	}
	for _, f := range files {
		out = append(out, Backup{
			ID:          f.ID,
			Name:        f.Name,
			Created:     f.CreatedAt,
			DownloadURL: f.DownloadURL,
			Kind:        KindOf(f.Name),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

// DeleteBackup removes a backup by remote id. Only files currently listed
// in the backup folder can be deleted.
func (c *Coordinator) DeleteBackup(ctx context.Context, id string) error {
	if c.folderErr != nil {
		return c.folderErr
	}
	d, ok := c.remote.(Deleter)
	if !ok {
		return ErrUnsupported
	}
	files, err := c.remote.List(ctx, c.folderID)
	if err != nil {
		return fmt.Errorf("%w: listing backups: %v", ErrRemoteUnavailable, err)
	}
	if !slices.ContainsFunc(files, func(f RemoteFile) bool { return f.ID == id }) {
		return fmt.Errorf("%w: %s", ErrUnknownBackup, id)
	}
	if err := d.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: deleting %s: %v", ErrRemoteUnavailable, id, err)
	}
	return nil
}
