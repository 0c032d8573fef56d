package command

// root.go defines the root command for fleetctl.
// Global flags and the conversation loop shared by every subcommand live here.

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fleethub/internal/client"
	"fleethub/internal/protocol"
)

var (
	serverPort int           // well-known port the inventory server listens on
	replyWait  time.Duration // how long to wait for each server response
)

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "fleetctl - inventory server command line client",
	Long: `fleetctl talks to the inventory server over its JSON-over-TCP protocol.
Each invocation binds a local callback port, posts one job, and walks any
follow-up rounds the server asks for. Use it to:
- Manage vehicles, engineers, laptops and contact details
- Inspect which engineers are assigned to which vehicle models
- Reset the database back to its seed data

Use "fleetctl command -h" to see all available commands.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVar(&serverPort, "server-port", 6000, "inventory server port")
	rootCmd.PersistentFlags().DurationVar(&replyWait, "wait", 10*time.Second, "how long to wait for each server response")
}

// runJob posts one job and walks the conversation until the server has
// nothing more to say. dataType drives which follow-up question an add
// flow asks.
func runJob(dataType string, job protocol.Message) error {
	c, err := client.New(serverPort)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SendJob(job); err != nil {
		return fmt.Errorf("failed to reach the server: %w", err)
	}
	isAdd := job["action"] == "add"

	for {
		resp, err := c.Await(replyWait)
		if err != nil {
			return err
		}
		printMessage(resp)

		status, _ := resp.String("status")
		switch status {
		case protocol.StatusError:
			text, _ := resp.String("text")
			return errors.New(text)

		case protocol.StatusNoEngineer:
			port, _ := resp.Int("port")
			answer := prompt("Add the laptop without a loaner? (y/n): ")
			if err := c.Respond(port, protocol.Message{"response": answer}); err != nil {
				return err
			}
			if answer != "y" {
				return nil // the server aborts without another reply
			}

		case protocol.StatusPreviousLaptop:
			port, _ := resp.Int("port")
			answer := prompt("Replace the engineer's current laptop? (y/n): ")
			if err := c.Respond(port, protocol.Message{"response": answer}); err != nil {
				return err
			}
			if answer != "y" {
				return nil
			}

		default: // success or updated
			if !isAdd || !resp.Has("port") {
				return nil
			}
			port, _ := resp.Int("port")
			more, err := answerAssignQuestion(c, port, dataType)
			if err != nil {
				return err
			}
			if !more {
				return nil // declining the question ends the flow quietly
			}
			isAdd = false // the final assigned/unassigned reply carries no port
		}
	}
}

// answerAssignQuestion handles the follow-up round after a vehicle or
// engineer was added: the server offers to link the new row to the other
// side of the join. Returns whether another server reply is coming.
func answerAssignQuestion(c *client.Client, port int, dataType string) (bool, error) {
	var question, listKey string
	if dataType == "vehicle" {
		question = "Assign engineers to the new vehicle? (y/n): "
		listKey = "engineers"
	} else {
		question = "Assign the new engineer to vehicles? (y/n): "
		listKey = "vehicles"
	}

	answer := prompt(question)
	if answer != "y" {
		return false, c.Respond(port, protocol.Message{"response": answer})
	}

	names := prompt("Comma-separated names: ")
	list := []string{}
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			list = append(list, n)
		}
	}
	return true, c.Respond(port, protocol.Message{"response": "y", listKey: list})
}

func prompt(question string) string {
	fmt.Print(question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func printMessage(msg protocol.Message) {
	out, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		fmt.Println(msg)
		return
	}
	fmt.Println(string(out))
}
