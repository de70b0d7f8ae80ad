package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/express-cli/internal/config"
)

const (
	// RootDirName is created directly under the base directory.
	RootDirName = "pf9"
	// ExpressDirName is the install root below RootDirName.
	ExpressDirName = "pf9-express"
	// PayloadDirName is the canonical name of the active release payload.
	PayloadDirName = "express"
	// BackupDirName holds the previous payload during an upgrade cutover.
	BackupDirName = "express-bak"
	// VersionFilename records the installed release version.
	VersionFilename = "version"
	// ArchiveFilename is where the release archive is downloaded to.
	ArchiveFilename = "express.tar.gz"
	// MarkerFilename marks a running init or upgrade.
	MarkerFilename = "express-cli.marker"

	// DirMode is used for every directory the installer creates.
	DirMode os.FileMode = 0o755
)

var errBaseDirRequired = errors.New("base directory must be provided")

// Layout is the set of paths making up a Platform9 Express installation.
type Layout struct {
	// RootDir is <base>/pf9.
	RootDir string
	// LogDir is reserved for express logs.
	LogDir string
	// DBDir is reserved for express state databases.
	DBDir string
	// ExpressDir is the install root holding the version file and the payload.
	ExpressDir string
	// ConfigDir holds express configuration.
	ConfigDir string
	// ConfigFile is the express configuration file.
	ConfigFile string
}

// New builds the layout rooted at base.
func New(base string) (*Layout, error) {
	if base == "" {
		return nil, errBaseDirRequired
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	root := filepath.Join(base, RootDirName)
	express := filepath.Join(root, ExpressDirName)
	configDir := filepath.Join(express, "config")

	return &Layout{
		RootDir:    root,
		LogDir:     filepath.Join(root, "log"),
		DBDir:      filepath.Join(root, "db"),
		ExpressDir: express,
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, "express.conf"),
	}, nil
}

// FromUserHome builds the layout rooted at the current user's home directory.
func FromUserHome() (*Layout, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("detect home directory: %w", err)
	}

	return New(home)
}

// ArchivePath is the fixed download location of the release archive.
func (l *Layout) ArchivePath() string {
	return filepath.Join(l.RootDir, ArchiveFilename)
}

// VersionFile is the installed state file.
func (l *Layout) VersionFile() string {
	return filepath.Join(l.ExpressDir, VersionFilename)
}

// PayloadDir is the canonical directory of the active release.
func (l *Layout) PayloadDir() string {
	return filepath.Join(l.ExpressDir, PayloadDirName)
}

// BackupDir holds the previous release while it is being replaced.
func (l *Layout) BackupDir() string {
	return filepath.Join(l.ExpressDir, BackupDirName)
}

// AnsibleRunner is the entry point shipped inside the payload.
func (l *Layout) AnsibleRunner() string {
	return filepath.Join(l.PayloadDir(), "pf9-express")
}

// SettingsFile is the default location of the express-cli settings.
func (l *Layout) SettingsFile() string {
	return filepath.Join(l.RootDir, config.DefaultConfigFilename)
}

// MarkerFile marks a running init or upgrade.
func (l *Layout) MarkerFile() string {
	return filepath.Join(l.RootDir, MarkerFilename)
}
