package scraper

import "strings"

// fieldMappings pairs tracker label text with the span field names the
// page uses for the matching value.
var fieldMappings = map[string][]string{
	"zip":                              {"zip"},
	"address":                          {"address"},
	"office id":                        {"office"},
	"application #":                    {"application"},
	"application":                      {"application"},
	"file #":                           {"file"},
	"file":                             {"file"},
	"project name":                     {"pname", "projectname"},
	"project scope":                    {"projectscope"},
	"city":                             {"city"},
	"ptn #":                            {"ptn"},
	"opsc #":                           {"opsc"},
	"project type":                     {"projecttype"},
	"# of incr":                        {"inc"},
	"project class":                    {"pclass"},
	"special type":                     {"specialtype"},
	"estimated amt":                    {"estamt"},
	"contracted amt":                   {"contamt"},
	"construction change document amt": {"coamt"},
	"received date":                    {"recvdate"},
	"approved date":                    {"appdate"},
	"closed date":                      {"closedate"},
}

// passthroughKeys are identifiers that never participate in label
// matching and are copied to the output as-is.
func isPassthroughKey(key string) bool {
	switch key {
	case "origin_id", "app_id", "url":
		return true
	}

	return false
}

// CleanDetails turns the raw span/table dump of a project page into a
// clean label to value map. The page renders each field as a labelNN
// span holding the display label plus a separately named span holding
// the value; this pairs them back up.
func CleanDetails(raw map[string]string) map[string]string {
	cleaned := make(map[string]string)
	labels := make(map[string]string)
	used := make(map[string]bool)

	for key, value := range raw {
		if name, ok := labelNumber(key); ok {
			labels[name] = strings.TrimSpace(strings.TrimSuffix(value, ":"))
		}
	}

	for _, labelText := range labels {
		if labelText == "" {
			continue
		}

		if matchLabel(labelText, raw, used, cleaned) {
			continue
		}

		// No value span found, keep the label with an empty value so
		// the column still exists downstream.
		cleaned[labelText] = ""
	}

	for key, value := range raw {
		if _, isLabel := labelNumber(key); isLabel {
			continue
		}
		if used[key] {
			continue
		}
		if _, exists := cleaned[key]; !exists {
			cleaned[key] = value
		}
	}

	return cleaned
}

// matchLabel finds the value span for a label, first by the known
// mapping table and then by fuzzy substring match.
func matchLabel(labelText string, raw map[string]string, used map[string]bool, cleaned map[string]string) bool {
	if fields, ok := fieldMappings[strings.ToLower(labelText)]; ok {
		for _, field := range fields {
			if value, exists := raw[field]; exists && !used[field] {
				cleaned[labelText] = value
				used[field] = true

				return true
			}
		}
	}

	clean := normalizeLabel(labelText)
	for field, value := range raw {
		if _, isLabel := labelNumber(field); isLabel {
			continue
		}
		if used[field] || isPassthroughKey(field) {
			continue
		}
		if strings.Contains(strings.ReplaceAll(strings.ToLower(field), "_", ""), clean) {
			cleaned[labelText] = value
			used[field] = true

			return true
		}
	}

	return false
}

// labelNumber reports whether key is a labelNN field and returns NN.
func labelNumber(key string) (string, bool) {
	if !strings.HasPrefix(key, "label") {
		return "", false
	}

	num := key[len("label"):]
	if num == "" {
		return "", false
	}
	for _, r := range num {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	return num, true
}

func normalizeLabel(label string) string {
	r := strings.NewReplacer(" ", "", "_", "", ".", "", "#", "", ":", "")
	return r.Replace(strings.ToLower(label))
}
