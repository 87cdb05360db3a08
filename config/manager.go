package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"chatterapi/config/models"
	"chatterapi/config/storage"
	"chatterapi/config/validation"
	"chatterapi/internal/crypto"
	"chatterapi/internal/logging"
)

// CurrentVersion is the connection file schema version written by this build
const CurrentVersion = 2

var (
	// ErrNoActiveConnection is returned when no connection is selected
	ErrNoActiveConnection = errors.New("no active connection")
	// ErrIndexOutOfRange is returned for an index outside the connection list
	ErrIndexOutOfRange = errors.New("connection index out of range")
)

// migration upgrades raw file content from one schema version to the next
type migration func(cm *Manager, data []byte) ([]byte, error)

// connectionMigrations is keyed by the version a step upgrades from.
//
//	v0: bare array of connections
//	v1: {"values": [...], "activeIndex": n} with plaintext keys
//	v2: v1 plus "version" and encrypted keys
var connectionMigrations = map[int]migration{
	0: migrateV0,
	1: migrateV1,
}

// Manager is the persisted connection list with a single active index
type Manager struct {
	configPath string
	keys       *crypto.KeyManager
	validator  *validation.Validator
	models     *ModelValidator
	logger     zerolog.Logger
	mu         sync.Mutex // guards the file within this process; flock guards it across processes
}

// NewManager opens the connection store in dir, migrating an older file once
func NewManager(dir string, keys *crypto.KeyManager, logger zerolog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	cm := &Manager{
		configPath: filepath.Join(dir, ConnectionsFile),
		keys:       keys,
		validator:  validation.NewValidator(),
		models:     NewModelValidator(),
		logger:     logging.Component(logger, "connections"),
	}
	if err := cm.migrate(); err != nil {
		return nil, err
	}
	return cm, nil
}

// OpenManager opens the connection store described by settings, creating the
// key file on first use
func OpenManager(s Settings, logger zerolog.Logger) (*Manager, error) {
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}
	keys, err := crypto.NewKeyManager(s.Dir)
	if err != nil {
		return nil, err
	}
	return NewManager(s.Dir, keys, logger)
}

// SetTemplateCheck makes Add and Edit reject connections naming unknown templates
func (cm *Manager) SetTemplateCheck(exists func(name string) bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.validator.TemplateExists = exists
}

// GetConfigPath returns the path to the connection file
func (cm *Manager) GetConfigPath() string {
	return cm.configPath
}

// detectVersion reads the schema version of raw file content
func detectVersion(data []byte) int {
	doc := gjson.ParseBytes(data)
	if doc.IsArray() {
		return 0
	}
	if v := doc.Get("version"); v.Exists() {
		return int(v.Int())
	}
	return 1
}

func migrateV0(_ *Manager, data []byte) ([]byte, error) {
	active := -1
	if len(gjson.ParseBytes(data).Array()) > 0 {
		active = 0
	}
	out, err := sjson.SetRawBytes([]byte(`{}`), "values", data)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "activeIndex", active)
}

func migrateV1(cm *Manager, data []byte) ([]byte, error) {
	var file models.File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if !gjson.GetBytes(data, "activeIndex").Exists() {
		file.ActiveIndex = -1
		if len(file.Values) > 0 {
			file.ActiveIndex = 0
		}
	}
	for i := range file.Values {
		enc, err := cm.keys.Encrypt(file.Values[i].Key)
		if err != nil {
			return nil, err
		}
		file.Values[i].Key = enc
	}
	file.Version = 2
	return json.Marshal(&file)
}

// upgrade runs every migration step needed to bring data to CurrentVersion
func (cm *Manager) upgrade(data []byte) ([]byte, int, error) {
	from := detectVersion(data)
	if from > CurrentVersion {
		return nil, from, fmt.Errorf("connection file version %d is newer than supported version %d", from, CurrentVersion)
	}
	for v := from; v < CurrentVersion; v++ {
		step, ok := connectionMigrations[v]
		if !ok {
			return nil, from, fmt.Errorf("no migration from connection file version %d", v)
		}
		var err error
		if data, err = step(cm, data); err != nil {
			return nil, from, fmt.Errorf("failed to migrate connection file from version %d: %w", v, err)
		}
	}
	return data, from, nil
}

// migrate rewrites an outdated file on disk, keeping a backup of the original
func (cm *Manager) migrate() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	file, err := os.OpenFile(cm.configPath, os.O_RDWR, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open connection file: %w", err)
	}
	defer file.Close()

	if err := lockFileExclusive(file); err != nil {
		return fmt.Errorf("failed to lock connection file: %w", err)
	}
	defer cm.unlock(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read connection file: %w", err)
	}
	if len(data) == 0 || detectVersion(data) == CurrentVersion {
		return nil
	}

	upgraded, from, err := cm.upgrade(data)
	if err != nil {
		return err
	}

	backups := storage.NewBackupManager(storage.DefaultBackupRetention)
	backupPath, err := backups.CreateBackup(cm.configPath)
	if err != nil {
		return err
	}

	var decoded models.File
	if err := json.Unmarshal(upgraded, &decoded); err != nil {
		return fmt.Errorf("failed to parse migrated connection file: %w", err)
	}
	if err := cm.writeLocked(file, &decoded); err != nil {
		if rerr := backups.RestoreFromBackup(cm.configPath, backupPath); rerr != nil {
			cm.logger.Error().Err(rerr).Str("backup", backupPath).Msg("Failed to restore connection file")
		}
		return err
	}

	cm.logger.Info().
		Int("from", from).
		Int("to", CurrentVersion).
		Str("backup", backupPath).
		Msg("Migrated connection file")
	return nil
}

// loadConfigFile reads and decrypts the connection file under a shared lock.
// The caller holds cm.mu.
func (cm *Manager) loadConfigFile() (*models.File, error) {
	file, err := os.OpenFile(cm.configPath, os.O_RDONLY, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyFile(), nil
		}
		return nil, fmt.Errorf("failed to open connection file: %w", err)
	}
	defer file.Close()

	if err := lockFileShared(file); err != nil {
		return nil, fmt.Errorf("failed to lock connection file: %w", err)
	}
	defer cm.unlock(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection file: %w", err)
	}
	return cm.decode(data)
}

func emptyFile() *models.File {
	return &models.File{Version: CurrentVersion, ActiveIndex: -1, Values: []models.Connection{}}
}

// decode parses file content, upgrading in memory if another process wrote
// an older schema since startup
func (cm *Manager) decode(data []byte) (*models.File, error) {
	if len(data) == 0 {
		return emptyFile(), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to parse connection file: invalid JSON")
	}
	data, _, err := cm.upgrade(data)
	if err != nil {
		return nil, err
	}

	var cf models.File
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse connection file: %w", err)
	}
	if cf.Values == nil {
		cf.Values = []models.Connection{}
	}
	for i := range cf.Values {
		key, err := cm.keys.Decrypt(cf.Values[i].Key)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt key of connection %d: %w", i, err)
		}
		cf.Values[i].Key = key
	}
	return &cf, nil
}

// saveConfigFile encrypts and writes the connection file under an exclusive
// lock. The caller holds cm.mu.
func (cm *Manager) saveConfigFile(cf *models.File) error {
	file, err := os.OpenFile(cm.configPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to open connection file: %w", err)
	}
	defer file.Close()

	if err := lockFileExclusive(file); err != nil {
		return fmt.Errorf("failed to lock connection file: %w", err)
	}
	defer cm.unlock(file)

	out := models.File{
		Version:     CurrentVersion,
		ActiveIndex: cf.ActiveIndex,
		Values:      make([]models.Connection, len(cf.Values)),
	}
	for i, c := range cf.Values {
		enc, err := cm.keys.Encrypt(c.Key)
		if err != nil {
			return fmt.Errorf("failed to encrypt key of connection %d: %w", i, err)
		}
		c.Key = enc
		out.Values[i] = c
	}
	return cm.writeLocked(file, &out)
}

// writeLocked replaces the content of an already locked file. Truncation
// happens after the lock is taken so readers never observe an empty file.
func (cm *Manager) writeLocked(file *os.File, cf *models.File) error {
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize connections: %w", err)
	}
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate connection file: %w", err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("failed to write connection file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync connection file: %w", err)
	}
	return nil
}

func (cm *Manager) unlock(file *os.File) {
	if err := unlockFile(file); err != nil {
		cm.logger.Warn().Err(err).Msg("Failed to unlock connection file")
	}
}

// update loads the file, applies fn and saves the result
func (cm *Manager) update(fn func(cf *models.File) error) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cf, err := cm.loadConfigFile()
	if err != nil {
		return err
	}
	if err := fn(cf); err != nil {
		return err
	}
	return cm.saveConfigFile(cf)
}

// Values returns every connection in list order
func (cm *Manager) Values() ([]models.Connection, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cf, err := cm.loadConfigFile()
	if err != nil {
		return nil, err
	}
	return cf.Values, nil
}

// Get returns the connection at index
func (cm *Manager) Get(index int) (models.Connection, error) {
	values, err := cm.Values()
	if err != nil {
		return models.Connection{}, err
	}
	if index < 0 || index >= len(values) {
		return models.Connection{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return values[index], nil
}

// ActiveIndex returns the active index, -1 when none is selected
func (cm *Manager) ActiveIndex() (int, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cf, err := cm.loadConfigFile()
	if err != nil {
		return -1, err
	}
	return cf.ActiveIndex, nil
}

// GetActive returns the active connection and its index
func (cm *Manager) GetActive() (models.Connection, int, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cf, err := cm.loadConfigFile()
	if err != nil {
		return models.Connection{}, -1, err
	}
	if cf.ActiveIndex < 0 || cf.ActiveIndex >= len(cf.Values) {
		return models.Connection{}, -1, ErrNoActiveConnection
	}
	return cf.Values[cf.ActiveIndex], cf.ActiveIndex, nil
}

// AddValue appends a connection. Active is forced on, and the connection
// becomes the selected one when nothing is selected yet. It returns the new index.
func (cm *Manager) AddValue(c models.Connection) (int, error) {
	if err := cm.validator.ValidateConnection(c); err != nil {
		return -1, err
	}
	c.Active = true

	index := -1
	err := cm.update(func(cf *models.File) error {
		cf.Values = append(cf.Values, c)
		index = len(cf.Values) - 1
		if cf.ActiveIndex < 0 || cf.ActiveIndex >= len(cf.Values) {
			cf.ActiveIndex = index
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	cm.logger.Debug().Int("index", index).Str("template", c.ConfigName).Msg("Added connection")
	return index, nil
}

// EditValue replaces the connection at index
func (cm *Manager) EditValue(c models.Connection, index int) error {
	if err := cm.validator.ValidateConnection(c); err != nil {
		return err
	}
	return cm.update(func(cf *models.File) error {
		if index < 0 || index >= len(cf.Values) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		c.Active = cf.Values[index].Active
		cf.Values[index] = c
		return nil
	})
}

// RemoveValue deletes the connection at index and repairs the active index:
// an earlier removal shifts it down, removing the active one clamps it to the
// last valid index, and an empty list leaves -1.
func (cm *Manager) RemoveValue(index int) error {
	return cm.update(func(cf *models.File) error {
		if index < 0 || index >= len(cf.Values) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		cf.Values = append(cf.Values[:index], cf.Values[index+1:]...)
		cf.ActiveIndex = repairActiveIndex(cf.ActiveIndex, index, len(cf.Values))
		return nil
	})
}

// repairActiveIndex computes the active index after removing removed from a
// list that now holds n entries
func repairActiveIndex(active, removed, n int) int {
	switch {
	case n == 0:
		return -1
	case active < 0:
		return active
	case removed < active:
		return active - 1
	case active >= n:
		return n - 1
	default:
		return active
	}
}

// SetActiveIndex selects the connection at index; -1 clears the selection
func (cm *Manager) SetActiveIndex(index int) error {
	return cm.update(func(cf *models.File) error {
		if index < -1 || index >= len(cf.Values) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		cf.ActiveIndex = index
		return nil
	})
}

// SetModel stores the model selection of the connection at index. When
// selection is non-empty, model must be one of them; an empty model picks the first.
func (cm *Manager) SetModel(index int, model string, selection []string) error {
	model, list, err := cm.models.Selection(model, selection)
	if err != nil {
		return err
	}
	return cm.update(func(cf *models.File) error {
		if index < 0 || index >= len(cf.Values) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		cf.Values[index].Model = model
		cf.Values[index].Models = list
		return nil
	})
}

// Sync rewrites the connection file in the current schema. Keys written in
// plain text by hand are encrypted.
func (cm *Manager) Sync() error {
	return cm.update(func(*models.File) error { return nil })
}
