package moderation

import (
	"context"
	"strings"
	"testing"

	"channel-hub/domain"
	"channel-hub/errors"

	"github.com/stretchr/testify/require"
)

func requireRejected(t *testing.T, err error, want errors.ModerationReason) {
	t.Helper()
	reason, ok := errors.RejectedReason(err)
	require.True(t, ok, "expected a moderation rejection")
	require.Equal(t, want, reason)
}

func TestLengthFilter_Content_At_Limit_Passes(t *testing.T) {
	req := require.New(t)

	// Given content of exactly the maximum length
	in := Input{Content: strings.Repeat("ab", maxContentRunes/2)}

	// Then it passes
	req.NoError(LengthFilter{}.Check(context.Background(), in))
}

func TestLengthFilter_Content_Over_Limit_Rejected(t *testing.T) {
	in := Input{Content: strings.Repeat("ab", maxContentRunes/2) + "x"}
	requireRejected(t, LengthFilter{}.Check(context.Background(), in), errors.ReasonTooLong)
}

func TestLengthFilter_Length_Counts_Runes_Not_Bytes(t *testing.T) {
	req := require.New(t)

	// Given multibyte content that exceeds the limit in bytes only
	in := Input{Content: strings.Repeat("éà", maxContentRunes/2)}

	req.NoError(LengthFilter{}.Check(context.Background(), in))
}

func TestLengthFilter_Repetition_At_Limit_Passes(t *testing.T) {
	req := require.New(t)

	// Given a run of exactly maxRepetition identical runes
	in := Input{Content: "n" + strings.Repeat("o", maxRepetition)}

	req.NoError(LengthFilter{}.Check(context.Background(), in))
}

func TestLengthFilter_Repetition_Over_Limit_Rejected(t *testing.T) {
	in := Input{Content: "n" + strings.Repeat("o", maxRepetition+1)}
	requireRejected(t, LengthFilter{}.Check(context.Background(), in), errors.ReasonRepetition)
}

func TestLengthFilter_Repetition_Detects_Multibyte_Runs(t *testing.T) {
	in := Input{Content: strings.Repeat("é", maxRepetition+1)}
	requireRejected(t, LengthFilter{}.Check(context.Background(), in), errors.ReasonRepetition)
}

func TestURLFilter_Three_URLs_Pass(t *testing.T) {
	req := require.New(t)
	in := Input{Content: "see https://a.example http://b.example and www.c.example"}
	req.NoError(URLFilter{}.Check(context.Background(), in))
}

func TestURLFilter_Four_URLs_Rejected(t *testing.T) {
	in := Input{Content: "https://a.io https://b.io HTTP://C.IO www.d.io"}
	requireRejected(t, URLFilter{}.Check(context.Background(), in), errors.ReasonTooManyURL)
}

func TestAttachmentFilter_Image_Message_With_Png_Passes(t *testing.T) {
	req := require.New(t)

	// A minimal PNG header is enough for content sniffing
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	in := Input{Type: domain.MessageImage, Attachment: png}

	req.NoError(AttachmentFilter{}.Check(context.Background(), in))
}

func TestAttachmentFilter_Image_Message_With_Text_Payload_Rejected(t *testing.T) {
	in := Input{Type: domain.MessageImage, Attachment: []byte("plain text pretending to be a picture")}
	requireRejected(t, AttachmentFilter{}.Check(context.Background(), in), errors.ReasonAttachment)
}

func TestAttachmentFilter_File_Message_Is_Not_Sniffed(t *testing.T) {
	req := require.New(t)

	// File messages may carry any payload; only image messages are checked
	in := Input{Type: domain.MessageFile, Attachment: []byte("arbitrary bytes")}

	req.NoError(AttachmentFilter{}.Check(context.Background(), in))
}

func TestAttachmentFilter_No_Attachment_Passes(t *testing.T) {
	req := require.New(t)
	req.NoError(AttachmentFilter{}.Check(context.Background(), Input{Type: domain.MessageImage}))
}
