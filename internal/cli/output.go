package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/storefront/cartsync/internal/core/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (rejected login, unknown product, ...)
	ExitCommandError = 2 // Command error (bad config, storage unreachable, ...)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type cartLineView struct {
	Key       string `json:"key"`
	ProductID int64  `json:"product_id"`
	SizeID    *int64 `json:"size_id"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type cartView struct {
	Lines       []cartLineView `json:"lines"`
	TotalItems  int            `json:"total_items"`
	TotalAmount string         `json:"total_amount"`
}

func newCartView(snap domain.CartSnapshot) cartView {
	v := cartView{
		Lines:       make([]cartLineView, 0, len(snap.Lines)),
		TotalItems:  snap.TotalItems,
		TotalAmount: snap.TotalAmount.StringFixed(2),
	}
	for _, l := range snap.Lines {
		v.Lines = append(v.Lines, cartLineView{
			Key:       l.Key().String(),
			ProductID: l.ProductID,
			SizeID:    l.Key().SizeIDPtr(),
			Name:      l.Name,
			Size:      l.SizeName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}
	return v
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func (o *RootOptions) formatter(w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: w}
}

// Cart prints a cart snapshot, with an optional status line in text mode.
func (f *OutputFormatter) Cart(status string, snap domain.CartSnapshot) error {
	view := newCartView(snap)
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(struct {
			Status string   `json:"status,omitempty"`
			Cart   cartView `json:"cart"`
		}{Status: status, Cart: view})
	}

	if status != "" {
		fmt.Fprintln(f.Writer, status)
	}
	if len(view.Lines) == 0 {
		fmt.Fprintln(f.Writer, "cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tPRODUCT\tSIZE\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range view.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", l.Key, l.Name, l.Size, l.Quantity, l.UnitPrice, l.Subtotal)
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\t%s\n", view.TotalItems, view.TotalAmount)
	return tw.Flush()
}

// Message prints a status line.
func (f *OutputFormatter) Message(status string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(map[string]string{"status": status})
	}
	_, err := fmt.Fprintln(f.Writer, status)
	return err
}
