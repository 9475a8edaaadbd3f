package moderation

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"channel-hub/domain"
	"channel-hub/errors"

	"github.com/gabriel-vasile/mimetype"
)

const (
	maxContentRunes = 2000
	// maxRepetition is the longest allowed run of one repeated rune.
	maxRepetition = 10
	maxURLCount   = 3
)

// LengthFilter rejects content exceeding the length ceiling or containing a
// single character repeated more than maxRepetition times consecutively.
type LengthFilter struct{}

func (LengthFilter) Name() string { return "length" }

func (LengthFilter) Check(_ context.Context, in Input) error {
	if utf8.RuneCountInString(in.Content) > maxContentRunes {
		return errors.ModerationRejected{Reason: errors.ReasonTooLong}
	}
	// The backreference pattern (.)\1{10,} is not expressible in RE2,
	// so runs are counted by hand.
	var prev rune
	run := 0
	for _, r := range in.Content {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run > maxRepetition {
			return errors.ModerationRejected{Reason: errors.ReasonRepetition}
		}
	}
	return nil
}

var urlPattern = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)

// URLFilter rejects content containing more than maxURLCount URL-like
// substrings.
type URLFilter struct{}

func (URLFilter) Name() string { return "url_count" }

func (URLFilter) Check(_ context.Context, in Input) error {
	if len(urlPattern.FindAllStringIndex(in.Content, maxURLCount+1)) > maxURLCount {
		return errors.ModerationRejected{Reason: errors.ReasonTooManyURL}
	}
	return nil
}

// AttachmentFilter verifies that an image message's attachment bytes really
// are an image. Detection relies on content sniffing, never on the declared
// file name.
type AttachmentFilter struct{}

func (AttachmentFilter) Name() string { return "attachment" }

func (AttachmentFilter) Check(_ context.Context, in Input) error {
	if len(in.Attachment) == 0 {
		return nil
	}
	if in.Type != domain.MessageImage {
		return nil
	}
	mt := mimetype.Detect(in.Attachment)
	if !strings.HasPrefix(mt.String(), "image/") {
		return errors.ModerationRejected{Reason: errors.ReasonAttachment}
	}
	return nil
}
