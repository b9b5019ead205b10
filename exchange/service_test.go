package exchange

import (
	"bytes"
	"context"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	travel "go-travel-rates"
	"math"
	"reflect"
	"testing"
)

type mock struct {
	rates travel.Rates
}

func (m *mock) EffectiveRate(code travel.Currency) travel.Rate {
	rate, _ := m.Resolve(code)
	return rate
}

func (m *mock) Resolve(code travel.Currency) (travel.Rate, Origin) {
	if rate, ok := m.rates[code]; ok {
		return rate, OriginTable
	}
	return 1, OriginFallback
}

func TestService_Convert(t *testing.T) {
	s := &service{
		resolver: &mock{rates: travel.Rates{"USD": 1, "FOO": 2.0, "BAR": 4.0}},
	}

	type args struct {
		amount travel.Amount
		from   travel.Currency
		to     travel.Currency
	}
	tests := []struct {
		name    string
		args    args
		want    travel.Exchanged
		wantErr bool
	}{
		{
			"usd -> foo",
			args{10.0, "USD", "FOO"},
			travel.Exchanged{Rate: 2.0, Amount: 20.0},
			false,
		},
		{
			"foo -> bar",
			args{10.0, "FOO", "BAR"},
			travel.Exchanged{Rate: 2.0, Amount: 20.0},
			false,
		},
		{
			"bar -> foo",
			args{10.0, "BAR", "FOO"},
			travel.Exchanged{Rate: 0.5, Amount: 5.0},
			false,
		},
		{
			"foo -> unknown",
			args{10.0, "FOO", "XYZ"},
			travel.Exchanged{Rate: 0.5, Amount: 5.0},
			false,
		},
		{
			"unknown -> unknown",
			args{10.0, "ABC", "XYZ"},
			travel.Exchanged{Rate: 1.0, Amount: 10.0},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Convert(context.Background(), tt.args.amount, tt.args.from, tt.args.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("Convert() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Convert() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_ConvertCancelled(t *testing.T) {
	m := &mock{}
	s := NewLoggingService(log.NewNopLogger(), m, NewService(m))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Convert(ctx, 1, "USD", "EUR"); err == nil {
		t.Errorf("Convert() expected an error for a cancelled context")
	}
}

func TestService_ConvertOverflowIsZero(t *testing.T) {
	s := NewService(&mock{rates: travel.Rates{"USD": 1, "INR": 83}})

	got, err := s.Convert(context.Background(), travel.Amount(math.MaxFloat64), "USD", "INR")

	require.NoError(t, err)
	assert.Equal(t, travel.Exchanged{Rate: 83, Amount: 0}, got)
}

func TestLoggingService_LogsRateOrigins(t *testing.T) {
	f := newFixture(t, scenarioRates)
	_, err := f.overrides.Set(context.Background(), "EUR", 0.95)
	require.NoError(t, err)

	var buf bytes.Buffer
	s := NewLoggingService(log.NewLogfmtLogger(&buf), f.resolver, NewService(f.resolver))

	got, err := s.Convert(context.Background(), 10, "EUR", "INR")
	require.NoError(t, err)
	assert.Equal(t, travel.Amount(873.68), got.Amount)

	line := buf.String()
	assert.Contains(t, line, "method=convert")
	assert.Contains(t, line, "amount=10.00")
	assert.Contains(t, line, "from=EUR from_rate=0.95 from_origin=override")
	assert.Contains(t, line, "to=INR to_rate=83 to_origin=table")
	assert.Contains(t, line, "converted=873.68")

	buf.Reset()
	_, err = s.Convert(context.Background(), 1, "XYZ", "USD")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "from=XYZ from_rate=1 from_origin=fallback")
}
