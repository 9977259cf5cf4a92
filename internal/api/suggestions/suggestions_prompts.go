package suggestions

import (
	"fmt"
	"strings"
)

func buildHotelPrompt(req SuggestionRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Suggest 5 hotels in %s for a group of %d travelers staying %d days.\n",
		req.City, req.PartySize, req.TripDays))
	if req.Budget != "" {
		sb.WriteString(fmt.Sprintf("Budget level: %s.\n", req.Budget))
	}
	if len(req.Interests) > 0 {
		sb.WriteString(fmt.Sprintf("The group is interested in: %s.\n", strings.Join(req.Interests, ", ")))
	}
	sb.WriteString(`Respond with ONLY a JSON array, no markdown, no commentary. Each element:
{
  "name": "hotel name",
  "provider_code": "short stable code if known, else empty",
  "region": "neighborhood",
  "description": "one sentence",
  "price_level": "budget|mid|luxury",
  "amenities": ["..."],
  "check_in_day": 1,
  "check_out_day": ` + fmt.Sprintf("%d", maxDay(req.TripDays)) + `,
  "score": 0.0,
  "explanation": "why this fits the group"
}`)
	return sb.String()
}

func buildActivityPrompt(req SuggestionRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Suggest 8 activities in %s for a group of %d travelers on a %d day trip.\n",
		req.City, req.PartySize, req.TripDays))
	if req.Budget != "" {
		sb.WriteString(fmt.Sprintf("Budget level: %s.\n", req.Budget))
	}
	if len(req.Interests) > 0 {
		sb.WriteString(fmt.Sprintf("The group is interested in: %s.\n", strings.Join(req.Interests, ", ")))
	}
	sb.WriteString(`Respond with ONLY a JSON array, no markdown, no commentary. Each element:
{
  "name": "activity name",
  "provider_code": "short stable code if known, else empty",
  "region": "neighborhood",
  "description": "one sentence",
  "price_level": "free|budget|mid|expensive",
  "duration_hint": "e.g. 2h",
  "start_time": "HH:MM or empty",
  "end_time": "HH:MM or empty",
  "score": 0.0,
  "explanation": "why this fits the group"
}`)
	return sb.String()
}

func maxDay(tripDays int) int {
	if tripDays < 1 {
		return 1
	}
	return tripDays
}

// cleanJSONResponse strips markdown fences and surrounding prose so the
// payload can be unmarshalled. Models wrap arrays in ```json blocks often
// enough that this is load-bearing.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}
	response = strings.TrimSpace(response)

	// Extract the outermost JSON array from a response that may carry
	// explanatory text around it.
	firstBracket := strings.Index(response, "[")
	lastBracket := strings.LastIndex(response, "]")
	if firstBracket != -1 && lastBracket > firstBracket {
		return response[firstBracket : lastBracket+1]
	}
	return response
}
