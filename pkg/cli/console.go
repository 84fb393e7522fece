package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/poltergeist/callcenter/internal/engine"
	"github.com/poltergeist/callcenter/pkg/ledger"
	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/metrics"
	"github.com/poltergeist/callcenter/pkg/types"
)

var (
	errInputClosed = errors.New("input closed")
	errShutdown    = errors.New("shutting down")
)

// console is one interactive menu session over a running dispatcher
type console struct {
	ctx        context.Context
	out        io.Writer
	msg        *logger.ConsoleLogger
	logger     logger.Logger
	dispatcher *engine.Dispatcher
	store      ledger.Store
	metrics    *metrics.Metrics

	lines    <-chan string
	quit     chan struct{}
	shutdown <-chan struct{}
	saveMu   sync.Mutex
}

func newConsole(ctx context.Context, c *CLI, d *engine.Dispatcher, store ledger.Store, m *metrics.Metrics) *console {
	lines := make(chan string)
	quit := make(chan struct{})

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.input)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-quit:
				return
			}
		}
	}()

	return &console{
		ctx:        ctx,
		out:        c.output,
		msg:        c.console,
		logger:     c.logger,
		dispatcher: d,
		store:      store,
		metrics:    m,
		lines:      lines,
		quit:       quit,
	}
}

// loop runs the menu until Exit, end of input or a shutdown signal.
// It reports whether the caller still owes the exit save.
func (con *console) loop() bool {
	defer close(con.quit)

	for {
		con.printMenu()
		choice, err := con.prompt("Enter choice: ")
		if err != nil {
			return errors.Is(err, errInputClosed)
		}

		switch choice {
		case "1":
			err = con.addCall()
		case "2":
			con.assign()
		case "3":
			err = con.release()
		case "4":
			renderQueue(con.out, con.dispatcher.QueueReport())
		case "5":
			renderAgents(con.out, con.dispatcher.StatusReport())
		case "6":
			con.save()
		case "7":
			return true
		case "8":
			con.showMetrics()
		case "":
		default:
			con.msg.Error("Invalid choice!")
		}

		if err != nil {
			return errors.Is(err, errInputClosed)
		}
	}
}

func (con *console) printMenu() {
	fmt.Fprintf(con.out, "\n%s\n", color.New(color.Bold).Sprint("Call Center Simulation:"))
	fmt.Fprintln(con.out, "1. Add Call")
	fmt.Fprintln(con.out, "2. Assign Call")
	fmt.Fprintln(con.out, "3. Release Agent")
	fmt.Fprintln(con.out, "4. Display Queue")
	fmt.Fprintln(con.out, "5. Display Agent Status")
	fmt.Fprintln(con.out, "6. Save Data")
	fmt.Fprintln(con.out, "7. Exit")
	fmt.Fprintln(con.out, "8. Metrics")
}

// prompt prints label and waits for the next input line
func (con *console) prompt(label string) (string, error) {
	fmt.Fprint(con.out, label)

	select {
	case line, ok := <-con.lines:
		if !ok {
			fmt.Fprintln(con.out)
			return "", errInputClosed
		}
		return line, nil
	case <-con.shutdown:
		fmt.Fprintln(con.out)
		return "", errShutdown
	}
}

func (con *console) addCall() error {
	priorityText, err := con.prompt("Enter Call Priority (0-VIP, 1-High, 2-Medium, 3-Low): ")
	if err != nil {
		return err
	}
	durationText, err := con.prompt(fmt.Sprintf("Enter Call Duration (max %d seconds): ", con.dispatcher.MaxCallDuration()))
	if err != nil {
		return err
	}
	name, err := con.prompt("Enter Caller Name: ")
	if err != nil {
		return err
	}
	phone, err := con.prompt("Enter Phone Number: ")
	if err != nil {
		return err
	}

	priority, err := types.ParsePriority(priorityText)
	if err != nil {
		con.msg.Error(err.Error())
		return nil
	}
	duration, err := strconv.Atoi(durationText)
	if err != nil {
		con.msg.Error(fmt.Sprintf("invalid duration %q", durationText))
		return nil
	}

	id, err := con.dispatcher.Submit(types.CallRequest{
		Priority:    priority,
		Duration:    duration,
		CallerName:  name,
		PhoneNumber: phone,
	})
	if err != nil {
		con.msg.Error(err.Error())
		return nil
	}

	con.msg.Success(fmt.Sprintf("Call ID %d added to queue.", id))
	return nil
}

func (con *console) assign() {
	if n := con.dispatcher.Assign(); n > 0 {
		con.msg.Success(fmt.Sprintf("Assigned %d call(s)", n))
		return
	}
	if len(con.dispatcher.QueueReport()) == 0 {
		con.msg.Info("Queue is empty.")
		return
	}
	con.msg.Warn("All agents are busy.")
}

func (con *console) release() error {
	text, err := con.prompt("Enter Agent ID to release: ")
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(text)
	if err != nil {
		con.msg.Error("Invalid Agent ID!")
		return nil
	}

	outcome, err := con.dispatcher.Release(id)
	switch {
	case errors.Is(err, types.ErrInvalidAgent):
		con.msg.Error("Invalid Agent ID!")
	case err != nil:
		con.msg.Error(err.Error())
	case outcome.Kind == types.ReleaseKindReleased:
		con.msg.Success(fmt.Sprintf("Agent %d released from Call ID %d", outcome.AgentID, outcome.CallID))
	default:
		con.msg.Info(fmt.Sprintf("Agent %d is already available", outcome.AgentID))
	}
	return nil
}

func (con *console) showMetrics() {
	summary, err := con.metrics.Summary()
	if err != nil {
		con.msg.Error(err.Error())
		return
	}
	renderMetrics(con.out, summary)
}

// save writes the ledger and reports the result on the console.
// It ignores cancellation so the shutdown path can still persist.
func (con *console) save() bool {
	con.saveMu.Lock()
	defer con.saveMu.Unlock()

	if err := engine.SaveState(context.WithoutCancel(con.ctx), con.dispatcher, con.store); err != nil {
		con.msg.Error(fmt.Sprintf("Failed to save data: %v", err))
		return false
	}
	con.msg.Success("Data saved successfully!")
	return true
}

func (con *console) autosave() {
	con.saveMu.Lock()
	defer con.saveMu.Unlock()

	if err := engine.SaveState(con.ctx, con.dispatcher, con.store); err != nil {
		con.logger.Warn("Autosave failed", logger.WithField("error", err))
	}
}
