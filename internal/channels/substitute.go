package channels

import "strings"

// ReplaceTextMappings substitutes trigger output values into mapping
// templates. Each occurrence of %field% in a string-valued mapping is
// replaced by the output value of the same name. Replacement is a single
// literal pass: there is no escaping, and values containing %other%
// markers are not re-expanded. Non-string mapping values and markers with
// no matching output pass through untouched.
func ReplaceTextMappings(mappings map[string]interface{}, outputs map[string]string) map[string]interface{} {
	if len(mappings) == 0 {
		return mappings
	}

	replacements := make([]string, 0, len(outputs)*2)
	for field, value := range outputs {
		replacements = append(replacements, "%"+field+"%", value)
	}
	replacer := strings.NewReplacer(replacements...)

	result := make(map[string]interface{}, len(mappings))
	for input, template := range mappings {
		if text, ok := template.(string); ok {
			result[input] = replacer.Replace(text)
		} else {
			result[input] = template
		}
	}
	return result
}
