package repositories

import (
	"fmt"
	"pairchat/domain"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Values are stored as the protobuf messages declared in proto/storage/storage.proto,
// encoded field by field with protowire.
// Timestamps are unix nanoseconds, omitted when zero.

func encodeMessage(m domain.PrivateMessage) []byte {
	var b []byte
	b = appendString(b, 1, m.ID)
	b = appendString(b, 2, string(m.Sender))
	b = appendString(b, 3, string(m.Receiver))
	b = appendString(b, 4, m.Content)
	b = appendString(b, 5, string(m.Type))
	if m.File != nil {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeFile(*m.File))
	}
	b = appendTime(b, 7, m.CreatedAt)
	for _, r := range m.ReadBy {
		var rb []byte
		rb = appendString(rb, 1, string(r.Reader))
		rb = appendTime(rb, 2, r.ReadAt)
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, rb)
	}
	if m.Edited {
		b = protowire.AppendTag(b, 9, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	if m.EditedAt != nil {
		b = appendTime(b, 10, *m.EditedAt)
	}
	return b
}

func decodeMessage(b []byte) (domain.PrivateMessage, error) {
	var m domain.PrivateMessage
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &m.ID)
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, (*string)(&m.Sender))
		case num == 3 && typ == protowire.BytesType:
			return consumeString(b, (*string)(&m.Receiver))
		case num == 4 && typ == protowire.BytesType:
			return consumeString(b, &m.Content)
		case num == 5 && typ == protowire.BytesType:
			return consumeString(b, (*string)(&m.Type))
		case num == 6 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			f, err := decodeFile(v)
			if err != nil {
				return -1
			}
			m.File = &f
			return n
		case num == 7 && typ == protowire.VarintType:
			return consumeTime(b, &m.CreatedAt)
		case num == 8 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			r, err := decodeReceipt(v)
			if err != nil {
				return -1
			}
			m.ReadBy = append(m.ReadBy, r)
			return n
		case num == 9 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Edited = protowire.DecodeBool(v)
			return n
		case num == 10 && typ == protowire.VarintType:
			var at time.Time
			n := consumeTime(b, &at)
			m.EditedAt = &at
			return n
		}
		return 0
	})
	if err != nil {
		return domain.PrivateMessage{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

func encodeFile(f domain.FileDescriptor) []byte {
	var b []byte
	b = appendString(b, 1, f.Filename)
	b = appendString(b, 2, f.OriginalName)
	if f.Size != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(f.Size))
	}
	b = appendString(b, 4, f.MimeType)
	b = appendString(b, 5, f.URL)
	return b
}

func decodeFile(b []byte) (domain.FileDescriptor, error) {
	var f domain.FileDescriptor
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &f.Filename)
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, &f.OriginalName)
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			f.Size = int64(v)
			return n
		case num == 4 && typ == protowire.BytesType:
			return consumeString(b, &f.MimeType)
		case num == 5 && typ == protowire.BytesType:
			return consumeString(b, &f.URL)
		}
		return 0
	})
	return f, err
}

func decodeReceipt(b []byte) (domain.ReadReceipt, error) {
	var r domain.ReadReceipt
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, (*string)(&r.Reader))
		case num == 2 && typ == protowire.VarintType:
			return consumeTime(b, &r.ReadAt)
		}
		return 0
	})
	return r, err
}

func encodeUser(u domain.User) []byte {
	var b []byte
	b = appendString(b, 1, string(u.ID))
	b = appendString(b, 2, u.Username)
	if u.IsOnline {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	b = appendTime(b, 4, u.LastSeen)
	b = appendTime(b, 5, u.CreatedAt)
	return b
}

func decodeUser(b []byte) (domain.User, error) {
	var u domain.User
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, (*string)(&u.ID))
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, &u.Username)
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			u.IsOnline = protowire.DecodeBool(v)
			return n
		case num == 4 && typ == protowire.VarintType:
			return consumeTime(b, &u.LastSeen)
		case num == 5 && typ == protowire.VarintType:
			return consumeTime(b, &u.CreatedAt)
		}
		return 0
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

// consumeFields walks every field of b. field returns the number of bytes it consumed,
// zero to skip an unknown field, or a negative value on malformed input.
func consumeFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n = field(num, typ, b)
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(t.UnixNano()))
}

func consumeString(b []byte, dst *string) int {
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeTime(b []byte, dst *time.Time) int {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = time.Unix(0, int64(v)).UTC()
	}
	return n
}
