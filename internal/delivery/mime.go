package delivery

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
)

// buildRawMessage assembles a multipart/mixed MIME message with the body
// and one attachment, suitable for the SES raw send path. With an HTML
// body the text and HTML parts nest in a multipart/alternative section.
func buildRawMessage(fromName, fromEmail string, msg *Message, attachment *Attachment) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", fromName), fromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	if err := writeBody(writer, msg); err != nil {
		return nil, err
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	attachHeader := textproto.MIMEHeader{}
	attachHeader.Set("Content-Type", contentType)
	attachHeader.Set("Content-Transfer-Encoding", "base64")
	attachHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	attachPart, err := writer.CreatePart(attachHeader)
	if err != nil {
		return nil, fmt.Errorf("create attachment part: %w", err)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(attachment.Data)))
	base64.StdEncoding.Encode(encoded, attachment.Data)
	// RFC 2045 line length limit.
	for len(encoded) > 76 {
		if _, err := attachPart.Write(encoded[:76]); err != nil {
			return nil, fmt.Errorf("write attachment: %w", err)
		}
		attachPart.Write([]byte("\r\n"))
		encoded = encoded[76:]
	}
	if _, err := attachPart.Write(encoded); err != nil {
		return nil, fmt.Errorf("write attachment: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBody(writer *multipart.Writer, msg *Message) error {
	if msg.HTML == "" {
		return writeTextPart(writer, "text/plain; charset=UTF-8", msg.Body)
	}

	var altBuf bytes.Buffer
	alt := multipart.NewWriter(&altBuf)
	if err := writeTextPart(alt, "text/plain; charset=UTF-8", msg.Body); err != nil {
		return err
	}
	if err := writeTextPart(alt, "text/html; charset=UTF-8", msg.HTML); err != nil {
		return err
	}
	if err := alt.Close(); err != nil {
		return fmt.Errorf("close alternative: %w", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create alternative part: %w", err)
	}
	if _, err := part.Write(altBuf.Bytes()); err != nil {
		return fmt.Errorf("write alternative part: %w", err)
	}
	return nil
}

func writeTextPart(writer *multipart.Writer, contentType, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return nil
}
