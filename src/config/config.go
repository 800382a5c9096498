// Package config reads the TOML configuration file of the local media library.
// Every key has a default so a configuration file only needs to set media_dir.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ironsmile/localmedia/src/helpers"
	"github.com/ironsmile/localmedia/src/library"
	"github.com/ironsmile/localmedia/src/models"
	"github.com/ironsmile/localmedia/src/scan"
	"github.com/ironsmile/localmedia/src/storage"
)

// AppName is used for the directories in the user's XDG locations.
const AppName = "localmedia"

// ConfigFile is the name of the configuration file in the user's
// configuration directory.
const ConfigFile = "config.toml"

// DatabaseFile is the name of the catalog file in the data directory.
const DatabaseFile = "library.db"

// ErrInvalidDirectory is returned for a directories entry which is not
// in the "<name> <uri>" form.
var ErrInvalidDirectory = errors.New("directory entry must be \"<name> <uri>\"")

// Config is the configuration of the local media library.
type Config struct {
	// MediaDir is the root directory of the media files.
	MediaDir string `toml:"media_dir" validate:"required"`

	// DataDir is where the catalog is stored.
	DataDir string `toml:"data_dir"`

	// ImageDir is where extracted cover art is stored. Defaults to the
	// images directory under DataDir.
	ImageDir string `toml:"image_dir"`

	// ImageBaseURI is the prefix of the URIs of extracted images.
	ImageBaseURI string `toml:"image_base_uri" validate:"required"`

	// Directories are the entries listed when browsing the root directory,
	// one "<name> <uri>" line each.
	Directories []string `toml:"directories" validate:"dive,directory"`

	// ScanTimeout is how long scanning a single file may take in
	// milliseconds.
	ScanTimeout int `toml:"scan_timeout" validate:"min=1000,max=3600000"`

	// ScanFlushThreshold is the number of files after which scan results are
	// committed.
	ScanFlushThreshold int `toml:"scan_flush_threshold" validate:"min=0"`

	ScanFollowSymlinks bool `toml:"scan_follow_symlinks"`

	IncludedFileExtensions []string `toml:"included_file_extensions"`
	ExcludedFileExtensions []string `toml:"excluded_file_extensions"`

	// Timeout is how long catalog queries wait for a lock in seconds.
	Timeout int `toml:"timeout" validate:"min=1"`

	UseArtistSortName bool `toml:"use_artist_sortname"`
	UseArtistMBIDURI  bool `toml:"use_artist_mbid_uri"`
	UseAlbumMBIDURI   bool `toml:"use_album_mbid_uri"`

	// AlbumArtFiles are glob patterns for cover art files next to tracks.
	AlbumArtFiles []string `toml:"album_art_files"`

	MaxSearchResults int `toml:"max_search_results" validate:"min=0"`

	// LogFile, when set, receives a copy of the log.
	LogFile string `toml:"log_file"`

	Debug bool `toml:"debug"`

	// Listen is the address of the image HTTP server.
	Listen string `toml:"listen" validate:"required"`
}

// Default returns the configuration used for every key the file does not set.
func Default() Config {
	return Config{
		DataDir:      filepath.Join(xdg.DataHome, AppName),
		ImageBaseURI: "/local/",
		Directories: []string{
			"Albums local:directory?type=album",
			"Artists local:directory?type=artist",
			"Composers local:directory?type=artist&role=composer",
			"Genres local:directory?type=genre",
			"Performers local:directory?type=artist&role=performer",
			"Release Years local:directory?type=date&format=%25Y",
			"Tracks local:directory?type=track",
			"Last Week's Updates local:directory?max-age=604800",
			"Last Month's Updates local:directory?max-age=2592000",
		},
		ScanTimeout:        1000,
		ScanFlushThreshold: 100,
		ExcludedFileExtensions: []string{
			".cue", ".directory", ".html", ".jpeg", ".jpg", ".log",
			".nfo", ".pdf", ".png", ".txt", ".zip",
		},
		Timeout:          10,
		AlbumArtFiles:    []string{"*.jpg", "*.jpeg", "*.png"},
		MaxSearchResults: 100,
		Listen:           ":6680",
	}
}

// UserConfigPath returns the path of the configuration file in the user's
// configuration directory.
func UserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFile)
}

// UserConfigExists reports whether the user has a configuration file.
func UserConfigExists() bool {
	st, err := os.Stat(UserConfigPath())
	if err != nil {
		return false
	}
	return st.Mode().IsRegular()
}

// FindAndParse reads the configuration file at path. An empty path means the
// user's configuration file.
func FindAndParse(path string) (Config, error) {
	if path == "" {
		path = UserConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a TOML document over the defaults and validates the result.
// Relative directories are resolved against the working directory.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ImageDir == "" && cfg.DataDir != "" {
		cfg.ImageDir = filepath.Join(cfg.DataDir, "images")
	}
	if cfg.ImageBaseURI != "" && !strings.HasSuffix(cfg.ImageBaseURI, "/") {
		cfg.ImageBaseURI += "/"
	}

	if err := newValidator().Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("resolving directories: %w", err)
	}
	for _, dir := range []*string{&cfg.MediaDir, &cfg.DataDir, &cfg.ImageDir} {
		if *dir != "" {
			*dir = helpers.AbsolutePath(*dir, wd)
		}
	}

	return cfg, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("directory", func(fl validator.FieldLevel) bool {
		_, err := ParseDirectory(fl.Field().String())
		return err == nil
	})
	return v
}

// ParseDirectory splits a directories entry into its name and URI. The URI is
// everything after the last space so names may contain spaces.
func ParseDirectory(line string) (models.Ref, error) {
	line = strings.TrimSpace(line)
	idx := strings.LastIndex(line, " ")
	if idx < 0 {
		return models.Ref{}, fmt.Errorf("%q: %w", line, ErrInvalidDirectory)
	}

	name := strings.TrimSpace(line[:idx])
	uri := line[idx+1:]
	if name == "" || uri == "" {
		return models.Ref{}, fmt.Errorf("%q: %w", line, ErrInvalidDirectory)
	}

	return models.DirectoryRef(uri, name), nil
}

// DatabasePath returns the path of the catalog file.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}

// QueryTimeout returns Timeout as a duration.
func (c Config) QueryTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Library returns the configuration of the query surface.
func (c Config) Library() library.Config {
	dirs := make([]models.Ref, 0, len(c.Directories))
	for _, line := range c.Directories {
		ref, err := ParseDirectory(line)
		if err != nil {
			// Parse has validated every entry.
			continue
		}
		dirs = append(dirs, ref)
	}

	return library.Config{
		MediaDir:          c.MediaDir,
		Directories:       dirs,
		UseArtistSortName: c.UseArtistSortName,
		MaxSearchResults:  c.MaxSearchResults,
	}
}

// Storage returns the configuration of the storage provider.
func (c Config) Storage() storage.Config {
	return storage.Config{
		MediaDir:         c.MediaDir,
		ImageDir:         c.ImageDir,
		ImageBaseURI:     c.ImageBaseURI,
		AlbumArtFiles:    c.AlbumArtFiles,
		UseArtistMBIDURI: c.UseArtistMBIDURI,
		UseAlbumMBIDURI:  c.UseAlbumMBIDURI,
	}
}

// Scan returns the configuration of the scan reconciler.
func (c Config) Scan() scan.Config {
	return scan.Config{
		MediaDir:           c.MediaDir,
		FollowSymlinks:     c.ScanFollowSymlinks,
		IncludedExtensions: c.IncludedFileExtensions,
		ExcludedExtensions: c.ExcludedFileExtensions,
		Timeout:            time.Duration(c.ScanTimeout) * time.Millisecond,
		FlushThreshold:     c.ScanFlushThreshold,
	}
}
