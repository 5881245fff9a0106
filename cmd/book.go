package cmd

import (
	"context"
	"fmt"
	"io"
	"motorserve/booking"
	"motorserve/outbound/emailjs"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

type bookFlags struct {
	values map[string]*string
}

func (f *bookFlags) normalized() (map[string]string, error) {
	values := make(map[string]string, len(f.values))
	for field, value := range f.values {
		values[field] = *value
	}

	vehicle, ok := booking.ParseVehicleType(values[booking.FieldVehicleType])
	if !ok {
		return nil, fmt.Errorf("unknown vehicle type %q", values[booking.FieldVehicleType])
	}
	service, ok := booking.ParseServiceType(values[booking.FieldServiceType])
	if !ok {
		return nil, fmt.Errorf("unknown service type %q", values[booking.FieldServiceType])
	}

	values[booking.FieldVehicleType] = string(vehicle)
	values[booking.FieldServiceType] = string(service)

	return values, nil
}

// printOpener writes the deep link for the operator to open by hand.
type printOpener struct {
	w io.Writer
}

func (o printOpener) Open(_ context.Context, url string) {
	fmt.Fprintln(o.w, url)
}

func newBookCmd(ctx context.Context) *cobra.Command {
	flags := &bookFlags{}
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Submit a booking from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBookCmd(ctx, cmd, flags)
		},
	}

	defaults := booking.NewDraft().Params()
	flags.values = make(map[string]*string, len(booking.Fields))
	for _, field := range booking.Fields {
		flags.values[field] = cmd.Flags().String(field, defaults[field], fmt.Sprintf("booking %s", field))
	}

	return cmd
}

func runBookCmd(ctx context.Context, cmd *cobra.Command, flags *bookFlags) error {
	cfg := newCfg("env")

	dispatcher := &emailjs.EmailJSOutbound{Cfg: cfg}
	dispatcher.Init()

	pipeline := booking.Pipeline{
		Config:     newBookingConfig(cfg),
		Dispatcher: dispatcher,
		Opener:     printOpener{w: cmd.OutOrStdout()},
	}

	values, err := flags.normalized()
	if err != nil {
		return err
	}

	form := booking.NewFormState(ulid.Make().String())
	for _, field := range booking.Fields {
		if err := form.SetField(field, values[field]); err != nil {
			return err
		}
	}

	outcome, err := pipeline.Submit(ctx, form)
	if err != nil {
		return err
	}

	status := form.Status()
	fmt.Fprintln(cmd.ErrOrStderr(), status.Message)

	if outcome != booking.OutcomeSent {
		return fmt.Errorf("booking %s", outcome)
	}

	return nil
}
