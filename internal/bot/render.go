package bot

import (
	"errors"
	"strings"

	"mochibot/internal/pet"
)

// errResponseKeys maps domain refusals onto the response table.
var errResponseKeys = []struct {
	err error
	key string
}{
	{pet.ErrNoAttemptsLeft, "no_attempts"},
	{pet.ErrMissingItem, "missing_item"},
	{pet.ErrBondFailed, "bond_failed"},
	{pet.ErrNoItem, "no_item"},
	{pet.ErrOutOfSeason, "out_of_season"},
	{pet.ErrNotEnoughPoints, "not_enough_points"},
	{pet.ErrFreeFeedUsed, "free_feed_used"},
	{pet.ErrAlreadyOwned, "already_owned"},
}

// render looks up a response line and substitutes {placeholder} variables.
func (d *Dispatcher) render(key string, vars map[string]string) string {
	line := d.catalog.Snapshot().Response(key)
	for k, v := range vars {
		line = strings.ReplaceAll(line, "{"+k+"}", v)
	}
	return line
}

// renderErr turns a domain refusal into its chat line. The item placeholder
// is filled from the first argument when the command took one.
func (d *Dispatcher) renderErr(err error, inv *Invocation) string {
	for _, m := range errResponseKeys {
		if errors.Is(err, m.err) {
			vars := map[string]string{"user": inv.User}
			if len(inv.Args) > 0 {
				vars["item"] = inv.Args[0]
			}
			return d.render(m.key, vars)
		}
	}
	return ""
}
