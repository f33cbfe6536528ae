package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"header-rules/internal/common/errors"
	"header-rules/internal/models"
)

// Setting keys understood by SetSetting
const (
	SettingActiveProfile          = "active_profile"
	SettingMaxRules               = "max_rules"
	SettingSortByPriority         = "sort_by_priority"
	SettingUnknownConditionPolicy = "unknown_condition_policy"
	SettingResolutionPasses       = "resolution_passes"
	SettingDefaultResourceTypes   = "default_resource_types" // comma separated
)

// SettingKeys lists every key understood by SetSetting
func SettingKeys() []string {
	keys := []string{
		SettingActiveProfile,
		SettingMaxRules,
		SettingSortByPriority,
		SettingUnknownConditionPolicy,
		SettingResolutionPasses,
		SettingDefaultResourceTypes,
	}
	sort.Strings(keys)
	return keys
}

// ParseSettings turns stored key/value settings into typed settings and the
// active profile. Missing keys keep their defaults.
func ParseSettings(values map[string]string) (models.Settings, string, error) {
	settings := models.DefaultSettings()
	var active string

	for key, value := range values {
		var err error
		switch key {
		case SettingActiveProfile:
			active = value
		case SettingMaxRules:
			settings.MaxRules, err = strconv.Atoi(value)
		case SettingSortByPriority:
			settings.SortByPriority, err = strconv.ParseBool(value)
		case SettingUnknownConditionPolicy:
			settings.UnknownConditionPolicy = value
		case SettingResolutionPasses:
			settings.ResolutionPasses, err = strconv.Atoi(value)
		case SettingDefaultResourceTypes:
			settings.DefaultResourceTypes = splitList(value)
		default:
			// unknown keys belong to other tools sharing the table
			continue
		}
		if err != nil {
			return settings, active, errors.ValidationError(fmt.Sprintf("setting %s: invalid value %q", key, value))
		}
	}

	if err := settings.Validate(); err != nil {
		return settings, active, errors.ValidationError("invalid settings: " + err.Error())
	}
	return settings.WithDefaults(), active, nil
}

// ValidateSetting checks a single key/value pair before it is stored
func ValidateSetting(key, value string) error {
	switch key {
	case SettingActiveProfile, SettingDefaultResourceTypes:
		return nil
	case SettingMaxRules, SettingSortByPriority, SettingUnknownConditionPolicy, SettingResolutionPasses:
		_, _, err := ParseSettings(map[string]string{key: value})
		return err
	default:
		return errors.ValidationError(fmt.Sprintf("unknown setting %q", key))
	}
}

// SettingsMap is the inverse of ParseSettings
func SettingsMap(settings models.Settings, active string) map[string]string {
	m := map[string]string{
		SettingMaxRules:               strconv.Itoa(settings.MaxRules),
		SettingSortByPriority:         strconv.FormatBool(settings.SortByPriority),
		SettingUnknownConditionPolicy: settings.UnknownConditionPolicy,
		SettingResolutionPasses:       strconv.Itoa(settings.ResolutionPasses),
	}
	if active != "" {
		m[SettingActiveProfile] = active
	}
	if len(settings.DefaultResourceTypes) > 0 {
		m[SettingDefaultResourceTypes] = strings.Join(settings.DefaultResourceTypes, ",")
	}
	return m
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
