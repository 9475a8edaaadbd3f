package ws

// clientEvent is the single frame shape accepted from clients. Action
// selects the operation; unused fields stay empty.
type clientEvent struct {
	Action    string `json:"action"`
	ChannelID string `json:"channel_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Type      string `json:"message_type,omitempty"`
	ReplyTo   string `json:"reply_to,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

const (
	actionJoinChannel   = "join_channel"
	actionLeaveChannel  = "leave_channel"
	actionSendMessage   = "send_message"
	actionEditMessage   = "edit_message"
	actionDeleteMessage = "delete_message"
	actionFlagMessage   = "flag_message"
	actionUnflagMessage = "unflag_message"
	actionTypingStart   = "typing_start"
	actionTypingStop    = "typing_stop"
)
