package web

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/settings"
)

var errEmptyForm = errors.New("no settings in form")

// parseSettingsForm reads percentage, comfort_mode and the
// <comfort>_min/<comfort>_max pairs. Every field is optional but a pair must
// be given whole.
func parseSettingsForm(form url.Values) (settings.Record, error) {
	var rec settings.Record

	if v := strings.TrimSpace(form.Get("percentage")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return settings.Record{}, fmt.Errorf("percentage: %w", err)
		}
		rec.Percentage = &p
	}

	if v := strings.TrimSpace(form.Get("comfort_mode")); v != "" {
		c, err := logic.ParseComfortMode(strings.ToUpper(v))
		if err != nil {
			return settings.Record{}, err
		}
		rec.ComfortMode = &c
	}

	for _, c := range logic.ComfortModes {
		prefix := strings.ToLower(c.String())
		lo := strings.TrimSpace(form.Get(prefix + "_min"))
		hi := strings.TrimSpace(form.Get(prefix + "_max"))
		if lo == "" && hi == "" {
			continue
		}
		if lo == "" || hi == "" {
			return settings.Record{}, fmt.Errorf("%s: both %s_min and %s_max are required", c, prefix, prefix)
		}
		low, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return settings.Record{}, fmt.Errorf("%s_min: %w", prefix, err)
		}
		high, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return settings.Record{}, fmt.Errorf("%s_max: %w", prefix, err)
		}
		if rec.OnlineThresholds == nil {
			rec.OnlineThresholds = make(map[logic.ComfortMode]logic.Threshold, len(logic.ComfortModes))
		}
		rec.OnlineThresholds[c] = logic.Threshold{Low: low, High: high}
	}

	if rec.Empty() {
		return settings.Record{}, errEmptyForm
	}
	return rec, nil
}
