package backend

import (
	"errors"
	"fmt"

	"cleaningos/internal/config"
)

// FromAppConfig builds the backend config for the named backend, usually
// DataBackend or MirrorBackend of the application config.
func FromAppConfig(appConfig *config.Config, name string) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	bt := BackendType(name)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %q", name)
	}
	return Config{
		Type:                bt,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		ExcelPath:           appConfig.ExcelPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
	}, nil
}

// Validate checks that the setting the selected backend depends on is present.
func (c Config) Validate() error {
	o, ok := openers[c.Type]
	if !ok {
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}
	if o.required == nil {
		return nil
	}
	if o.required(c) == "" {
		return fmt.Errorf("%s is required for the %s backend", o.setting, c.Type)
	}
	return nil
}

// GetBackendTypes lists the backends in the order they are documented.
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SheetsBackend, ExcelBackend, SQLiteBackend}
}
