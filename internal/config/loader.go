package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/example/club-scheduler/internal/policy"
)

// Config captures environment driven configuration values for the club
// scheduler service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	Policies        policy.Settings
	AlertRecipients []string
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// the values of any entries that are set.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:  8080,
		SQLiteDSN: "file:club-scheduler.db?_foreign_keys=on",
		Policies: policy.Settings{
			CancelDeadlineHours: 2,
			Absence: policy.AbsenceSettings{
				Threshold:    3,
				WindowDays:   30,
				CooldownDays: 14,
				Enabled:      true,
			},
		},
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CLUB_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CLUB_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CLUB_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if value := strings.TrimSpace(os.Getenv("CLUB_CANCEL_DEADLINE_HOURS")); value != "" {
		hours, err := strconv.Atoi(value)
		if err != nil || hours < 1 {
			invalid = append(invalid, "CLUB_CANCEL_DEADLINE_HOURS")
		} else {
			cfg.Policies.CancelDeadlineHours = hours
		}
	}

	if value := strings.TrimSpace(os.Getenv("CLUB_ABSENCE_THRESHOLD")); value != "" {
		threshold, err := strconv.Atoi(value)
		if err != nil || threshold < 1 {
			invalid = append(invalid, "CLUB_ABSENCE_THRESHOLD")
		} else {
			cfg.Policies.Absence.Threshold = threshold
		}
	}

	if value := strings.TrimSpace(os.Getenv("CLUB_ABSENCE_WINDOW_DAYS")); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil || days < 1 {
			invalid = append(invalid, "CLUB_ABSENCE_WINDOW_DAYS")
		} else {
			cfg.Policies.Absence.WindowDays = days
		}
	}

	if value := strings.TrimSpace(os.Getenv("CLUB_ABSENCE_COOLDOWN_DAYS")); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil || days < 1 {
			invalid = append(invalid, "CLUB_ABSENCE_COOLDOWN_DAYS")
		} else {
			cfg.Policies.Absence.CooldownDays = days
		}
	}

	if value := strings.TrimSpace(os.Getenv("CLUB_ABSENCE_ALERTS_ENABLED")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "CLUB_ABSENCE_ALERTS_ENABLED")
		} else {
			cfg.Policies.Absence.Enabled = enabled
		}
	}

	if value := strings.TrimSpace(os.Getenv("CLUB_ALERT_RECIPIENTS")); value != "" {
		for _, recipient := range strings.Split(value, ",") {
			if recipient = strings.TrimSpace(recipient); recipient != "" {
				cfg.AlertRecipients = append(cfg.AlertRecipients, recipient)
			}
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
