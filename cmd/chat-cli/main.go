// chat-cli: Interactive terminal client for the dronechat WebSocket
// endpoint. Useful for exercising the service without a browser.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/airsimlabs/go-dronechat/pkg/chat"
)

var (
	host    = flag.String("host", "localhost:8001", "dronechat host:port")
	session = flag.String("session", "", "Session id (default: random)")
)

func main() {
	flag.Parse()

	sessionID := *session
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	url := fmt.Sprintf("ws://%s/api/chat/ws/%s", *host, sessionID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: failed to connect:", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Println("Connected to", url)
	fmt.Println("Type a command for the drone, or Ctrl-D to quit.")
	fmt.Println()

	// Reader goroutine: print reply events as they arrive.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var event chat.Event
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			printEvent(event)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := scanner.Text()
		if text == "" {
			continue
		}
		if err := conn.WriteJSON(chat.Request{Message: text}); err != nil {
			fmt.Fprintln(os.Stderr, "Error: write failed:", err)
			break
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	<-done
}

func printEvent(event chat.Event) {
	switch event.Type {
	case chat.EventStatus:
		fmt.Println("  ...")
	case chat.EventReply:
		var resp chat.Response
		if err := json.Unmarshal(event.Data, &resp); err != nil {
			fmt.Println("  (unreadable reply)")
			return
		}
		fmt.Println()
		fmt.Println(resp.Reply)
		for _, tc := range resp.ToolCalls {
			if tc.OK() {
				fmt.Printf("  [tool %s: ok]\n", tc.Tool)
			} else {
				fmt.Printf("  [tool %s: %s]\n", tc.Tool, tc.Error)
			}
		}
		fmt.Println()
	case chat.EventError:
		fmt.Printf("  [error] %s\n", event.Data)
	}
}
