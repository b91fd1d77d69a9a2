/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package main is the entry point for fcli, an interactive REPL client for a
running gatewayd instance.

Architecture:

The CLI follows a simple synchronous request-response model over HTTP:

 1. Read a line from stdin (or a single -e command).
 2. Parse it into a command (invoke, shutdown, hello, or \ prefixed local
    commands).
 3. Send the corresponding HTTP request to the gateway.
 4. Print the response body and status.
 5. Repeat.

Commands:

	invoke <name> <body>   POST the body to /function/<name>
	shutdown               POST /shutdown
	hello                  GET /hello
	\q, \quit              Exit the CLI
	\h, \help              Show help
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

const version = "0.1.0"

const requestTimeout = 10 * time.Second

func main() {
	httpAddr := flag.String("addr", "http://localhost:8080", "Gateway HTTP base address")
	execute := flag.String("e", "", "Execute a single command and exit")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fcli version %s\n", version)
		os.Exit(0)
	}

	client := &http.Client{Timeout: requestTimeout}
	base := strings.TrimSuffix(*httpAddr, "/")

	if *execute != "" {
		out, err := runCommand(client, base, *execute, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}

	fmt.Printf("fcli %s connected to %s\n", version, base)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "gatewayd> ",
		HistoryFile: historyFilePath(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on Ctrl-D, readline.ErrInterrupt on Ctrl-C
			fmt.Println("Goodbye!")
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "\\") {
			if handleLocalCommand(line) {
				return
			}
			continue
		}

		out, err := runCommand(client, base, line, true)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(out)
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fcli_history"
	}
	return home + "/.fcli_history"
}

// handleLocalCommand processes a backslash-prefixed command handled
// entirely client-side. It returns true when the REPL should exit.
func handleLocalCommand(cmd string) bool {
	switch cmd {
	case "\\q", "\\quit":
		fmt.Println("Goodbye!")
		return true
	case "\\h", "\\help":
		printHelp()
		return false
	default:
		fmt.Printf("unknown command: %s. Type \\h for help.\n", cmd)
		return false
	}
}

func printHelp() {
	fmt.Println(`commands:
  invoke <name> <body>   POST the body to /function/<name>
  shutdown                POST /shutdown
  hello                   GET /hello
  \q, \quit               exit
  \h, \help               this message`)
}

// runCommand dispatches one parsed command against the gateway. When
// interactive is true, a destructive shutdown asks for confirmation on the
// raw terminal before it is sent.
func runCommand(client *http.Client, base, line string, interactive bool) (string, error) {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "hello":
		return doGet(client, base+"/hello")
	case "shutdown":
		if interactive && !confirmShutdown() {
			return "shutdown cancelled", nil
		}
		return doPost(client, base+"/shutdown", nil)
	case "invoke":
		if len(parts) < 2 {
			return "", fmt.Errorf("usage: invoke <name> <body>")
		}
		rest := strings.SplitN(parts[1], " ", 2)
		if len(rest) < 2 {
			return "", fmt.Errorf("usage: invoke <name> <body>")
		}
		name, body := rest[0], rest[1]
		return doPost(client, base+"/function/"+name, strings.NewReader(body))
	default:
		return "", fmt.Errorf("unknown command: %s (try \\h for help)", cmd)
	}
}

func doGet(client *http.Client, url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return readResponse(resp)
}

func doPost(client *http.Client, url string, body io.Reader) (string, error) {
	resp, err := client.Post(url, "application/octet-stream", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return readResponse(resp)
}

// confirmShutdown prompts for a single y/n keypress on the raw terminal,
// without waiting for Enter, before a destructive shutdown is sent.
func confirmShutdown() bool {
	fd := int(os.Stdin.Fd())
	fmt.Print("shut down the gateway? [y/N] ")

	if !term.IsTerminal(fd) {
		// Not an interactive terminal (piped input) — fall back to a
		// line read so the prompt still behaves under redirection.
		var answer string
		fmt.Scanln(&answer)
		return strings.EqualFold(answer, "y")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		var answer string
		fmt.Scanln(&answer)
		return strings.EqualFold(answer, "y")
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		fmt.Println()
		return false
	}
	fmt.Println(string(buf[0]))
	return buf[0] == 'y' || buf[0] == 'Y'
}

func readResponse(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%d] %s", resp.StatusCode, strings.TrimRight(string(data), "\n")), nil
}
