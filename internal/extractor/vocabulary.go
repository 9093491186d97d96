package extractor

import "regexp"

// Part numbers carry a recognised prefix. PartSelect numbers come first,
// then manufacturer formats (Whirlpool, GE, Samsung).
var partPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bPS\d{5,10}\b`),
	regexp.MustCompile(`(?i)\bWPW\d{7,8}\b`),
	regexp.MustCompile(`(?i)\bWP\d{6,8}[A-Z]?\b`),
	regexp.MustCompile(`(?i)\bW\d{8}[A-Z]?\b`),
	regexp.MustCompile(`(?i)\bW[RBDEH]\d{2}X\d{3,5}[A-Z]?\b`),
	regexp.MustCompile(`(?i)\bD[AD]\d{2}-\d{5}[A-Z]?\b`),
}

// Appliance model numbers: a letter series, a numeric block, then a suffix
// (WDT780SAEM1, RF28R7351SG, LFX28968ST).
var modelPattern = regexp.MustCompile(`(?i)\b[A-Z]{2,6}\d{2,5}[A-Z0-9]{1,8}\b`)

type keyword struct {
	pattern *regexp.Regexp
	value   string
}

func words(value string, phrases ...string) []keyword {
	out := make([]keyword, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, keyword{pattern: regexp.MustCompile(`(?i)\b` + p + `\b`), value: value})
	}
	return out
}

func concat(groups ...[]keyword) []keyword {
	var out []keyword
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var brandKeywords = concat(
	words("Whirlpool", "whirlpool"),
	words("GE", "ge", "general electric"),
	words("Samsung", "samsung"),
	words("LG", "lg"),
	words("Frigidaire", "frigidaire"),
	words("Kenmore", "kenmore"),
	words("Bosch", "bosch"),
	words("KitchenAid", "kitchen ?aid"),
	words("Maytag", "maytag"),
	words("Amana", "amana"),
	words("Electrolux", "electrolux"),
	words("Jenn-Air", "jenn-?air"),
)

// Appliance names are word-bounded so "dishwasher" never reads as "washer".
var applianceKeywords = concat(
	words(ApplianceRefrigerator, "refrigerators?", "fridges?", "freezers?"),
	words(ApplianceDishwasher, "dish ?washers?"),
	words("washing machine", "washing machines?", "washers?", "laundry machines?"),
	words("dryer", "dryers?", "clothes dryers?"),
	words("oven", "ovens?", "stoves?", "cooktops?"),
	words("microwave", "microwaves?"),
	words("air conditioner", "air conditioners?", "ac units?"),
	words("water heater", "water heaters?"),
)

const (
	ApplianceRefrigerator = "refrigerator"
	ApplianceDishwasher   = "dishwasher"
)

var componentKeywords = concat(
	words("ice maker", "ice ?makers?"),
	words("water dispenser", "water dispensers?", "dispensers?"),
	words("water filter", "water filters?"),
	words("door gasket", "door (?:seal|gasket)s?", "gaskets?"),
	words("compressor", "compressors?"),
	words("evaporator fan", "evaporator fans?", "fan motors?", "fans?"),
	words("defrost heater", "defrost heaters?", "defrost timers?"),
	words("thermostat", "thermostats?"),
	words("spray arm", "spray arms?"),
	words("drain pump", "drain pumps?", "pumps?"),
	words("door latch", "door latch(?:es)?", "latch(?:es)?"),
	words("door", "doors?"),
	words("light", "lights?", "bulbs?"),
	words("rack", "racks?", "dishrack", "wheels?"),
	words("heating element", "heating elements?"),
	words("control board", "control boards?"),
)

// Problem phrases, normalised so component + problem reads naturally.
var problemKeywords = concat(
	words("not working", "not working", "isn'?t working", "doesn'?t work", "stopped working", "won'?t work", "broken"),
	words("not cooling", "not cooling", "not cold", "won'?t cool", "too warm"),
	words("not draining", "not draining", "won'?t drain", "doesn'?t drain", "standing water"),
	words("leaking", "leak(?:ing|s)?", "dripping"),
	words("not making ice", "not making ice", "no ice", "won'?t make ice"),
	words("not dispensing", "not dispensing", "won'?t dispense"),
	words("not cleaning", "not cleaning", "dishes (?:are )?(?:still )?dirty"),
	words("not drying", "not drying", "dishes (?:are )?wet"),
	words("won't start", "won'?t start", "won'?t turn on", "not turning on", "no power", "dead"),
	words("noisy", "nois(?:y|e)", "loud", "rattling", "buzzing", "clicking"),
	words("frost build-up", "frost(?:ing)? (?:build ?-?up|buildup)", "ice build ?-?up", "frosting up"),
	words("won't close", "won'?t close", "doesn'?t close", "won'?t latch"),
	words("smells", "smell(?:s|y)?", "odou?r"),
)
