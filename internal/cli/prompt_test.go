package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/reconcile"
)

func conflict() reconcile.Conflict {
	local := []domain.CartLine{
		{ProductID: 1, UnitPrice: decimal.NewFromInt(10), Quantity: 2, LineMetadata: domain.LineMetadata{Name: "Mug"}},
	}
	server := []domain.CartLine{
		{ProductID: 3, SizeID: 5, UnitPrice: decimal.NewFromInt(40), Quantity: 1, LineMetadata: domain.LineMetadata{Name: "Tee", SizeName: "M"}},
	}
	items, amount := domain.Totals(server)
	return reconcile.Conflict{
		Local:  domain.NewCartSnapshot(local),
		Server: domain.ServerCart{Lines: server, TotalItems: items, TotalAmount: amount},
		Diff:   reconcile.DiffLines(local, server),
	}
}

func TestTerminalPrompter_Choose(t *testing.T) {
	tests := []struct {
		input string
		want  reconcile.Choice
		err   error
	}{
		{input: "restore\n", want: reconcile.ChoiceAdoptServer},
		{input: "R\n", want: reconcile.ChoiceAdoptServer},
		{input: "keep\n", want: reconcile.ChoiceKeepLocal},
		{input: " k ", want: reconcile.ChoiceKeepLocal},
		{input: "maybe\n", err: ErrPromptDismissed},
		{input: "", err: ErrPromptDismissed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := NewTerminalPrompter(strings.NewReader(tt.input), &out)

			got, err := p.Choose(context.Background(), conflict())
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminalPrompter_ShowsDifferences(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminalPrompter(strings.NewReader("k\n"), &out)
	_, err := p.Choose(context.Background(), conflict())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "this device: 2 items, 20.00")
	assert.Contains(t, out.String(), "account:     1 items, 40.00")
	assert.Contains(t, out.String(), "+ Mug x2 (only here)")
	assert.Contains(t, out.String(), "- Tee (M) x1 (only in account)")
}

func TestTerminalPrompter_Cancelled(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTerminalPrompter(r, io.Discard).Choose(ctx, conflict())
	assert.ErrorIs(t, err, context.Canceled)
}
