package models

import "strings"

// CanonEntry describes one book of the canonical sequence used by the package format.
type CanonEntry struct {
	Order        int
	ID           string // lowercase file id, e.g. "gen", "1ch"
	Name         string
	Abbreviation string
	Testament    Testament
}

const (
	OldTestamentBooks = 39
	NewTestamentBooks = 27
	CanonBooks        = OldTestamentBooks + NewTestamentBooks
)

// Canon lists all 66 books in canonical order; Canon[i].Order == i+1.
var Canon = []CanonEntry{
	{1, "gen", "Genesis", "Gen", OldTestament},
	{2, "exo", "Exodus", "Exod", OldTestament},
	{3, "lev", "Leviticus", "Lev", OldTestament},
	{4, "num", "Numbers", "Num", OldTestament},
	{5, "deu", "Deuteronomy", "Deut", OldTestament},
	{6, "jos", "Joshua", "Josh", OldTestament},
	{7, "jdg", "Judges", "Judg", OldTestament},
	{8, "rut", "Ruth", "Ruth", OldTestament},
	{9, "1sa", "1 Samuel", "1Sam", OldTestament},
	{10, "2sa", "2 Samuel", "2Sam", OldTestament},
	{11, "1ki", "1 Kings", "1Kgs", OldTestament},
	{12, "2ki", "2 Kings", "2Kgs", OldTestament},
	{13, "1ch", "1 Chronicles", "1Chr", OldTestament},
	{14, "2ch", "2 Chronicles", "2Chr", OldTestament},
	{15, "ezr", "Ezra", "Ezra", OldTestament},
	{16, "neh", "Nehemiah", "Neh", OldTestament},
	{17, "est", "Esther", "Esth", OldTestament},
	{18, "job", "Job", "Job", OldTestament},
	{19, "psa", "Psalms", "Ps", OldTestament},
	{20, "pro", "Proverbs", "Prov", OldTestament},
	{21, "ecc", "Ecclesiastes", "Eccl", OldTestament},
	{22, "sng", "Song of Solomon", "Song", OldTestament},
	{23, "isa", "Isaiah", "Isa", OldTestament},
	{24, "jer", "Jeremiah", "Jer", OldTestament},
	{25, "lam", "Lamentations", "Lam", OldTestament},
	{26, "ezk", "Ezekiel", "Ezek", OldTestament},
	{27, "dan", "Daniel", "Dan", OldTestament},
	{28, "hos", "Hosea", "Hos", OldTestament},
	{29, "jol", "Joel", "Joel", OldTestament},
	{30, "amo", "Amos", "Amos", OldTestament},
	{31, "oba", "Obadiah", "Obad", OldTestament},
	{32, "jon", "Jonah", "Jonah", OldTestament},
	{33, "mic", "Micah", "Mic", OldTestament},
	{34, "nam", "Nahum", "Nah", OldTestament},
	{35, "hab", "Habakkuk", "Hab", OldTestament},
	{36, "zep", "Zephaniah", "Zeph", OldTestament},
	{37, "hag", "Haggai", "Hag", OldTestament},
	{38, "zec", "Zechariah", "Zech", OldTestament},
	{39, "mal", "Malachi", "Mal", OldTestament},
	{40, "mat", "Matthew", "Matt", NewTestament},
	{41, "mrk", "Mark", "Mark", NewTestament},
	{42, "luk", "Luke", "Luke", NewTestament},
	{43, "jhn", "John", "John", NewTestament},
	{44, "act", "Acts", "Acts", NewTestament},
	{45, "rom", "Romans", "Rom", NewTestament},
	{46, "1co", "1 Corinthians", "1Cor", NewTestament},
	{47, "2co", "2 Corinthians", "2Cor", NewTestament},
	{48, "gal", "Galatians", "Gal", NewTestament},
	{49, "eph", "Ephesians", "Eph", NewTestament},
	{50, "php", "Philippians", "Phil", NewTestament},
	{51, "col", "Colossians", "Col", NewTestament},
	{52, "1th", "1 Thessalonians", "1Thess", NewTestament},
	{53, "2th", "2 Thessalonians", "2Thess", NewTestament},
	{54, "1ti", "1 Timothy", "1Tim", NewTestament},
	{55, "2ti", "2 Timothy", "2Tim", NewTestament},
	{56, "tit", "Titus", "Titus", NewTestament},
	{57, "phm", "Philemon", "Phlm", NewTestament},
	{58, "heb", "Hebrews", "Heb", NewTestament},
	{59, "jas", "James", "Jas", NewTestament},
	{60, "1pe", "1 Peter", "1Pet", NewTestament},
	{61, "2pe", "2 Peter", "2Pet", NewTestament},
	{62, "1jn", "1 John", "1John", NewTestament},
	{63, "2jn", "2 John", "2John", NewTestament},
	{64, "3jn", "3 John", "3John", NewTestament},
	{65, "jud", "Jude", "Jude", NewTestament},
	{66, "rev", "Revelation", "Rev", NewTestament},
}

// CanonByOrder returns the canonical entry for a 1-based order.
func CanonByOrder(order int) (CanonEntry, bool) {
	if order < 1 || order > len(Canon) {
		return CanonEntry{}, false
	}
	return Canon[order-1], true
}

// CanonByID looks up a book by file id, abbreviation or English name, case-insensitively.
func CanonByID(id string) (CanonEntry, bool) {
	needle := strings.ToLower(strings.TrimSpace(id))
	for _, entry := range Canon {
		if entry.ID == needle || strings.ToLower(entry.Abbreviation) == needle || strings.ToLower(entry.Name) == needle {
			return entry, true
		}
	}
	return CanonEntry{}, false
}

// TestamentForOrder returns the testament a canonical order falls in.
func TestamentForOrder(order int) (Testament, bool) {
	entry, ok := CanonByOrder(order)
	if !ok {
		return "", false
	}
	return entry.Testament, true
}

// CanonPlan returns the books a package declaring old/new testament totals supplies:
// the first old books of the Old Testament followed by the first new books of the New Testament.
func CanonPlan(old, new int) []CanonEntry {
	var plan []CanonEntry
	for i := 0; i < old && i < OldTestamentBooks; i++ {
		plan = append(plan, Canon[i])
	}
	for i := 0; i < new && i < NewTestamentBooks; i++ {
		plan = append(plan, Canon[OldTestamentBooks+i])
	}
	return plan
}
