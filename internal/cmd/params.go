package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/phonix/internal/filter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var parameterFlags = []struct {
	flag  string
	usage string
	set   func(u *filter.Update, v float64)
}{
	{"brightness", "Brightness in percent (50-150)", func(u *filter.Update, v float64) { u.Brightness = filter.Float(v) }},
	{"contrast", "Contrast in percent (50-150)", func(u *filter.Update, v float64) { u.Contrast = filter.Float(v) }},
	{"saturation", "Saturation in percent (0-200)", func(u *filter.Update, v float64) { u.Saturation = filter.Float(v) }},
	{"blur", "Blur radius in pixels (0-10)", func(u *filter.Update, v float64) { u.Blur = filter.Float(v) }},
	{"hue-rotate", "Hue rotation in degrees (0-360)", func(u *filter.Update, v float64) { u.HueRotate = filter.Float(v) }},
	{"sepia", "Sepia in percent (0-100)", func(u *filter.Update, v float64) { u.Sepia = filter.Float(v) }},
	{"warmth", "Warmth (-50-50); positive warms, negative cools", func(u *filter.Update, v float64) { u.Warmth = filter.Float(v) }},
	{"glow", "Glow (0-100); preview only, not exported", func(u *filter.Update, v float64) { u.Glow = filter.Float(v) }},
}

// addParameterFlags registers --preset and one flag per filter parameter,
// bound under section.
func addParameterFlags(cmd *cobra.Command, section string) {
	identity := filter.Identity()
	defaults := map[string]float64{
		"brightness": identity.Brightness,
		"contrast":   identity.Contrast,
		"saturation": identity.Saturation,
	}

	cmd.Flags().String("preset", "", "Start from a catalog preset, e.g. \"Vintage 12\"")
	cmd.Flags().Int64("seed", 0, "Catalog seed (0 generates a fresh catalog)")
	names := []string{"preset", "seed"}
	for _, pf := range parameterFlags {
		cmd.Flags().Float64(pf.flag, defaults[pf.flag], pf.usage)
		names = append(names, pf.flag)
	}
	bindFlags(cmd, section, names...)
}

// resolveParameters starts from the preset (or identity) and applies every
// parameter that was set explicitly. It returns the clamped parameters and
// the preset name, or "" when none was used.
func resolveParameters(section string) (filter.Parameters, string, error) {
	params := filter.Identity()

	name := viper.GetString(section + ".preset")
	if name != "" {
		cat := loadCatalog(viper.GetInt64(section + ".seed"))
		preset, ok := cat.Lookup(name)
		if !ok {
			return filter.Parameters{}, "", fmt.Errorf("unknown preset %q", name)
		}
		params = preset.Parameters
	}

	var u filter.Update
	for _, pf := range parameterFlags {
		key := section + "." + flagKey(pf.flag)
		if viper.IsSet(key) {
			pf.set(&u, viper.GetFloat64(key))
		}
	}

	return params.Merge(u), name, nil
}
