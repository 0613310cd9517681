package router

// ChitchatReply is the fixed acknowledgment the chitchat worker returns. It
// doubles as the fallback response for anything the supervisor could not
// place with the meeting or news workers; no inference call is involved.
const ChitchatReply = "chitchat node finished"

func runChitchat() string {
	return ChitchatReply
}
