package catalog

// Built-in response lines, overridable per key via the responses file.
// Placeholders: {user} {item} {worth} {cost} {tier} {value} {balance}.
var defaultResponses = map[string]string{
	"bond_success":      "Mochi loved that! {user} gained {worth} bond.",
	"bond_failed":       "Mochi wriggled away from {user}. Maybe next time.",
	"no_attempts":       "{user}, you have no bonding attempts left. Feed Mochi to earn more.",
	"missing_item":      "{user}, you need the {item} for that.",
	"no_item":           "{user}, {item} is not something Mochi recognizes.",
	"out_of_season":     "{user}, {item} is out of season right now.",
	"not_enough_points": "{user}, you can't afford {item}.",
	"free_feed_used":    "{user}, Mochi already had a free cracker today.",
	"already_owned":     "{user}, you already own the {item}.",
	"feed_success":      "Mochi munches on the {item}. {user} earned a bonding attempt!",
	"buy_success":       "{user} bought the {item}!",
	"gift_common":       "Mochi opens {user}'s {item}... a common trinket. Still nice!",
	"gift_uncommon":     "Mochi opens {user}'s {item}... ooh, an uncommon find!",
	"gift_rare":         "Mochi opens {user}'s {item}... a RARE treasure! Mochi is thrilled!",
	"rollcall_here":     "{user} checked in! +{value} points (now {balance}).",
	"stats":             "{user}: affection {value}, bond {worth}, attempts left {balance}.",
	"points":            "{user} has {balance} points.",
	"never_seen":        "{user} hasn't met Mochi yet.",
}
