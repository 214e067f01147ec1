package ollama

import (
	"encoding/json"
	"fmt"
	"strings"
)

func buildInspectionPrompt(angle string) string {
	view := "the shoe"
	if strings.TrimSpace(angle) != "" {
		view = fmt.Sprintf("the %s view of the shoe", strings.TrimSpace(angle))
	}

	return fmt.Sprintf(`You are a footwear quality inspector. Examine %s in the photo.
List every visible manufacturing defect, one short phrase per defect, naming location when clear.
Classify each defect:
- critical: safety or function failure (sole detachment, broken heel, sharp object, wrong size label).
- major: likely customer return (visible glue, uneven stitching, deep scratch, color mismatch between pair).
- minor: cosmetic, acceptable after light rework (loose thread, small scuff, light crease).
Return strict JSON object with keys:
critical_defects (array of strings), major_defects (array of strings), minor_defects (array of strings).
Use empty arrays when nothing is found. No markdown, no extra keys.`, view)
}

func buildTranslationPrompt(texts []string, language string) string {
	payload, _ := json.Marshal(texts)
	return fmt.Sprintf(`Translate each footwear defect description below from English to the language with BCP 47 tag %q.
Keep technical terms precise and keep the same order.
Return strict JSON object with key translations (array of strings) holding exactly %d entries.
No markdown, no extra keys.

Descriptions:
%s`, language, len(texts), payload)
}
