package main

import "picobot/internal/config"

const profileEnv = "PICOBOT_PROFILE"

// resolveSettings builds run settings: the named profile (or PICOBOT_PROFILE,
// or the default), then the TOML file, then PICOBOT_* overrides. An explicit
// -profile flag wins over PICOBOT_PROFILE.
func resolveSettings(profile, configPath string, lookup func(string) (string, bool)) (config.Settings, error) {
	if profile == "" {
		if v, ok := lookup(profileEnv); ok && v != "" {
			profile = v
		}
	}
	settings, err := config.Profile(profile)
	if err != nil {
		return config.Settings{}, err
	}

	if configPath != "" {
		settings, err = config.LoadFile(configPath, settings)
		if err != nil {
			return config.Settings{}, err
		}
	}

	withoutProfile := func(key string) (string, bool) {
		if key == profileEnv {
			return "", false
		}
		return lookup(key)
	}
	return config.ApplyEnv(settings, withoutProfile)
}
