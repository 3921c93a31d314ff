package irc

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// Message is one parsed chat line.
type Message struct {
	UserID      string
	User        string // login, lowercase
	DisplayName string
	Channel     string
	Text        string
}

// Client is a minimal Twitch chat (TMI) connection: tags capability, JOIN,
// PRIVMSG in and out, PONG handling. Everything else on the wire is skipped.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	channel string
	log     *slog.Logger

	mu sync.Mutex // serializes writes
}

// Dial connects, authenticates, and joins the channel. The token is the
// bare OAuth token; the oauth: prefix is added here.
func Dial(addr, nick, token, channel string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		channel: strings.ToLower(strings.TrimPrefix(channel, "#")),
		log:     logger,
	}
	lines := []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"PASS oauth:" + strings.TrimPrefix(token, "oauth:"),
		"NICK " + strings.ToLower(nick),
		"JOIN #" + c.channel,
	}
	for _, line := range lines {
		if err := c.writeLine(line); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return c, nil
}

// ReadMessage blocks until the next PRIVMSG, answering PINGs along the way.
func (c *Client) ReadMessage() (Message, error) {
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return Message{}, fmt.Errorf("read chat: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "PING") {
			if err := c.writeLine("PONG" + strings.TrimPrefix(line, "PING")); err != nil {
				return Message{}, err
			}
			continue
		}
		if msg, ok := parsePrivmsg(line); ok {
			return msg, nil
		}
	}
}

// Send posts a line to the joined channel.
func (c *Client) Send(text string) error {
	return c.writeLine("PRIVMSG #" + c.channel + " :" + text)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.conn, "QUIT\r\n")
	return c.conn.Close()
}

func (c *Client) writeLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprint(c.conn, line+"\r\n"); err != nil {
		return fmt.Errorf("write chat: %w", err)
	}
	return nil
}

// parsePrivmsg parses a tagged TMI line:
//
//	@display-name=Alice;user-id=123 :alice!alice@alice.tmi PRIVMSG #chan :hello
func parsePrivmsg(line string) (Message, bool) {
	var msg Message

	rest := line
	if strings.HasPrefix(rest, "@") {
		sp := strings.IndexByte(rest, ' ')
		if sp < 0 {
			return msg, false
		}
		for _, tag := range strings.Split(rest[1:sp], ";") {
			k, v, ok := strings.Cut(tag, "=")
			if !ok {
				continue
			}
			switch k {
			case "user-id":
				msg.UserID = v
			case "display-name":
				msg.DisplayName = v
			}
		}
		rest = rest[sp+1:]
	}

	if !strings.HasPrefix(rest, ":") {
		return msg, false
	}
	sp := strings.IndexByte(rest, ' ')
	if sp < 0 {
		return msg, false
	}
	prefix := rest[1:sp]
	if bang := strings.IndexByte(prefix, '!'); bang >= 0 {
		msg.User = strings.ToLower(prefix[:bang])
	}
	rest = rest[sp+1:]

	if !strings.HasPrefix(rest, "PRIVMSG ") {
		return msg, false
	}
	rest = strings.TrimPrefix(rest, "PRIVMSG ")
	channel, text, ok := strings.Cut(rest, " :")
	if !ok {
		return msg, false
	}
	msg.Channel = strings.TrimPrefix(channel, "#")
	msg.Text = text
	if msg.DisplayName == "" {
		msg.DisplayName = msg.User
	}
	if msg.UserID == "" {
		// Tags capability not granted; fall back to the login as the key.
		msg.UserID = msg.User
	}
	return msg, msg.User != "" && msg.Text != ""
}
