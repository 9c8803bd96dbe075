package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(c)
}

func validateCustomRules(c *Config) error {
	if c.Webdav.Backend == BackendDB && len(c.DBFile) == 0 {
		return fmt.Errorf("db_file: required by backend %q", BackendDB)
	}
	if len(c.UserInfo) == 0 && !c.AllowAnonymous {
		return fmt.Errorf("user_info: no user configured and anonymous access disabled")
	}
	if c.Webdav.MaxLockTimeout > 0 && c.Webdav.LockTimeout > c.Webdav.MaxLockTimeout {
		return fmt.Errorf("webdav.lock_timeout: %d exceeds max_lock_timeout %d", c.Webdav.LockTimeout, c.Webdav.MaxLockTimeout)
	}
	names := make(map[string]struct{}, len(c.Plugins))
	for i, p := range c.Plugins {
		if _, ok := names[p.Name]; ok {
			return fmt.Errorf("plugins[%d]: duplicate plugin name %q", i, p.Name)
		}
		names[p.Name] = struct{}{}
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
