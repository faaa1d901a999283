package generation

import (
	"fmt"

	"lorecrafter/models"
)

const characterPrompt = "You are a worldbuilding assistant. Create a single, compelling character for a fictional world. " +
	"Provide the output as a JSON object with five string keys: 'name', 'role', 'physical_description', " +
	"'personality_traits', and 'backstory'. The backstory should be several paragraphs long."

const locationPrompt = "You are a worldbuilding assistant. Create a single, interesting location for a fictional world. " +
	"Provide the output as a JSON object with two string keys: 'name' and 'description'. " +
	"The description should be several paragraphs long."

// systemPrompt is the fixed instruction sent for each kind.
func systemPrompt(kind models.Kind) string {
	switch kind {
	case models.KindCharacter:
		return characterPrompt
	case models.KindLocation:
		return locationPrompt
	}
	panic(fmt.Sprintf("generation: no prompt for kind %d", int(kind)))
}

// requiredKeys lists the keys a reply must carry, as non-empty strings.
func requiredKeys(kind models.Kind) []string {
	switch kind {
	case models.KindCharacter:
		return []string{"name", "role", "physical_description", "personality_traits", "backstory"}
	case models.KindLocation:
		return []string{"name", "description"}
	}
	panic(fmt.Sprintf("generation: no keys for kind %d", int(kind)))
}

func userPrompt(worldPrompt string) string {
	return "The world is: " + worldPrompt
}
