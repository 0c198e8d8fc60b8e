package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thrasher-corp/twapper/config"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
	"github.com/thrasher-corp/twapper/signaler"
	"github.com/urfave/cli/v2"
)

var (
	host    string
	timeout time.Duration
)

const defaultTimeout = time.Second * 30

func jsonOutput(in interface{}) {
	j, err := json.MarshalIndent(in, "", " ")
	if err != nil {
		return
	}
	fmt.Println(string(j))
}

func main() {
	app := cli.NewApp()
	app.Name = "twapcli"
	app.EnableBashCompletion = true
	app.Usage = "command line observer for the twapd daemon"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "host",
			Value:       config.DefaultListenAddress,
			Usage:       "the twapd host to connect to",
			Destination: &host,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Value:       defaultTimeout,
			Usage:       "the timeout for REST requests",
			Destination: &timeout,
		},
	}
	app.Commands = []*cli.Command{
		pingCommand,
		startCommand,
		executionsCommand,
		executionCommand,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var pingCommand = &cli.Command{
	Name:   "ping",
	Usage:  "checks the daemon is serving",
	Action: func(_ *cli.Context) error { return getJSON("/") },
}

var executionsCommand = &cli.Command{
	Name:  "executions",
	Usage: "lists journaled executions, newest first",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum executions returned"},
	},
	Action: func(c *cli.Context) error {
		return getJSON("/executions?limit=" + url.QueryEscape(fmt.Sprint(c.Int("limit"))))
	},
}

var executionCommand = &cli.Command{
	Name:      "execution",
	Usage:     "shows a journaled execution with its events",
	ArgsUsage: "<id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "the execution id"},
	},
	Action: func(c *cli.Context) error {
		id := c.String("id")
		if id == "" {
			id = c.Args().First()
		}
		if id == "" {
			return cli.ShowSubcommandHelp(c)
		}
		return getJSON("/executions/" + url.PathEscape(id))
	},
}

var startCommand = &cli.Command{
	Name:  "start",
	Usage: "starts a TWAP buy and streams its progress, Ctrl+C cancels it",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "instrument", Value: config.DefaultInstrument, Usage: "the instrument to buy"},
		&cli.Float64Flag{Name: "percent", Value: config.DefaultPercent, Usage: "percent of the quote balance to spend"},
		&cli.Int64Flag{Name: "slices", Value: config.DefaultSlices, Usage: "number of slices"},
		&cli.DurationFlag{Name: "interval", Value: config.DefaultInterval, Usage: "time between slices"},
	},
	Action: startTWAP,
}

func startTWAP(c *cli.Context) error {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws-twap"}
	conn, resp, err := websocket.DefaultDialer.DialContext(c.Context, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.WriteJSON(map[string]interface{}{
		"instrument":       c.String("instrument"),
		"percent":          c.Float64("percent"),
		"slice_count":      c.Int64("slices"),
		"interval_seconds": c.Duration("interval").Seconds(),
	})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	released := signaler.OnInterrupt(done, func(os.Signal) {
		fmt.Fprintln(os.Stderr, "sending cancel")
		if err := conn.WriteJSON(common.ControlSignal{Action: common.ActionCancel}); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	})
	defer func() {
		close(done)
		<-released
	}()

	for {
		var ev map[string]interface{}
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		jsonOutput(ev)
		if common.Status(fmt.Sprint(ev["status"])).IsTerminal() {
			return nil
		}
	}
}

func getJSON(path string) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get("http://" + host + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var out interface{}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%s: %s", resp.Status, body)
	}
	jsonOutput(out)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return nil
}
