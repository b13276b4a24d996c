// Package prompt provides the LLM instructions used by attitudebot.
package prompt

// MarketAttitude asks the model to label an article as pro-markets (0) or
// pro-government intervention (1). The article text is appended after a
// blank line.
const MarketAttitude = "You are to evaluate the following article and determine if it is pro-markets (pro-capitalism) " +
	"or pro-government intervention. Respond in valid JSON format with a single key-value pair: " +
	`{"result": "0"} for pro-markets and {"result": "1"} for pro-government intervention. ` +
	"Provide only the JSON object as your response, with no additional text or formatting."

// Compose joins an instruction and the article content into one prompt.
func Compose(instruction, content string) string {
	return instruction + "\n\n" + content
}
