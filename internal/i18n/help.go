package i18n

// Operations lists the session operations in the order help prints them.
var Operations = []string{
	"connect",
	"wait_for_track_change",
	"set_speed",
	"stop",
	"change_lane",
	"change_position",
	"get_lane",
	"align_to_start",
	"current_track_piece",
	"map",
	"road_offset",
	"speed",
	"current_lane3",
	"current_lane4",
	"vehicle_id",
}

// HelpEntry is the localized documentation of one operation.
type HelpEntry struct {
	Op   string
	Name string
	Doc  string
}

// Help returns the documentation for every operation in locale.
func Help(locale string) []HelpEntry {
	b := Default()
	out := make([]HelpEntry, 0, len(Operations))
	for _, op := range Operations {
		name, _ := b.Message(locale, "ops."+op+".name")
		doc, _ := b.Message(locale, "ops."+op+".doc")
		out = append(out, HelpEntry{Op: op, Name: name, Doc: doc})
	}
	return out
}

// Lookup returns the documentation of one operation, or false if op is unknown.
func Lookup(locale, op string) (HelpEntry, bool) {
	b := Default()
	name, ok := b.Message(locale, "ops."+op+".name")
	if !ok {
		return HelpEntry{}, false
	}
	doc, _ := b.Message(locale, "ops."+op+".doc")
	return HelpEntry{Op: op, Name: name, Doc: doc}, true
}
