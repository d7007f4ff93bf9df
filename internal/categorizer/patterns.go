package categorizer

import "sort"

// Categories is the closed set of spending categories. "other" is the
// catch-all and the only category ever assigned on classification failure.
var Categories = []string{
	"food",
	"groceries",
	"transport",
	"entertainment",
	"shopping",
	"health",
	"services",
	"travel",
	"education",
	"other",
}

// IsKnownCategory reports whether c is in the closed category set.
func IsKnownCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// merchantTable maps merchant name fragments to categories. Matching is
// substring-based against the normalized description, longest fragment
// first so "uber eats" wins over "uber".
var merchantTable = map[string]string{
	"starbucks":           "food",
	"mcdonald":            "food",
	"burger king":         "food",
	"dominos":             "food",
	"uber eats":           "food",
	"didi food":           "food",
	"rappi":               "food",
	"vips":                "food",
	"toks":                "food",
	"walmart":             "groceries",
	"soriana":             "groceries",
	"chedraui":            "groceries",
	"la comer":            "groceries",
	"costco":              "groceries",
	"sams club":           "groceries",
	"oxxo":                "groceries",
	"7 eleven":            "groceries",
	"uber":                "transport",
	"didi":                "transport",
	"cabify":              "transport",
	"pemex":               "transport",
	"gasolinera":          "transport",
	"netflix":             "entertainment",
	"spotify":             "entertainment",
	"disney":              "entertainment",
	"hbo":                 "entertainment",
	"cinepolis":           "entertainment",
	"cinemex":             "entertainment",
	"steam":               "entertainment",
	"playstation":         "entertainment",
	"amazon":              "shopping",
	"mercado libre":       "shopping",
	"mercadolibre":        "shopping",
	"liverpool":           "shopping",
	"palacio de hierro":   "shopping",
	"sears":               "shopping",
	"shein":               "shopping",
	"aliexpress":          "shopping",
	"farmacia":            "health",
	"farmacias similares": "health",
	"gnc":                 "health",
	"cfe":                 "services",
	"telmex":              "services",
	"telcel":              "services",
	"izzi":                "services",
	"totalplay":           "services",
	"aeromexico":          "travel",
	"volaris":             "travel",
	"vivaaerobus":         "travel",
	"airbnb":              "travel",
	"booking.com":         "travel",
	"expedia":             "travel",
	"marriott":            "travel",
	"udemy":               "education",
	"coursera":            "education",
	"platzi":              "education",
}

// categoryKeywords maps categories to generic description keywords, used
// only when no merchant fragment matched.
var categoryKeywords = map[string][]string{
	"food":          {"restaurant", "restaurante", "cafe", "cafeteria", "taqueria", "pizza", "comida", "cocina"},
	"groceries":     {"super", "abarrotes", "mercado", "mini market"},
	"transport":     {"gasolina", "taxi", "estacionamiento", "parking", "peaje", "autobus", "metro"},
	"entertainment": {"cine", "concierto", "teatro", "juego", "streaming"},
	"shopping":      {"tienda", "store", "departamental", "boutique"},
	"health":        {"medic", "dental", "clinica", "hospital", "laboratorio", "pharmacy", "doctor"},
	"services":      {"luz", "agua", "telefono", "internet", "suscripcion", "seguro", "recibo"},
	"travel":        {"vuelo", "hotel", "viaje", "flight", "airline", "aerolinea"},
	"education":     {"escuela", "colegiatura", "universidad", "curso", "school", "libreria"},
}

// merchantKeys holds the merchant fragments sorted longest first, then
// lexicographically, so lookups are deterministic across runs.
var merchantKeys = sortedKeysByLength(merchantTable)

func sortedKeysByLength(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
