package store

import (
	"context"
	"net/http"
	"testing"

	"github.com/abgdnv/smartstock/internal/postgrest"
	"github.com/abgdnv/smartstock/internal/postgrest/postgresttest"
	"github.com/abgdnv/smartstock/pkg/config"
	"github.com/abgdnv/smartstock/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseCapability(t *testing.T) {
	testCases := []struct {
		in       string
		expected Capability
		wantErr  bool
	}{
		{in: "", expected: CapabilityUnknown},
		{in: "auto", expected: CapabilityUnknown},
		{in: "Present", expected: CapabilityPresent},
		{in: " absent ", expected: CapabilityAbsent},
		{in: "sometimes", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCapability(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func Test_CapabilitiesFromConfig(t *testing.T) {
	caps, err := CapabilitiesFromConfig(config.SchemaConfig{ActiveFlag: "present", ActiveView: "auto"})
	require.NoError(t, err)
	assert.Equal(t, Capabilities{ActiveFlag: CapabilityPresent, ActiveView: CapabilityUnknown}, caps)

	_, err = CapabilitiesFromConfig(config.SchemaConfig{ActiveView: "nope"})
	assert.Error(t, err)
}

func Test_Probe(t *testing.T) {
	testCases := []struct {
		name     string
		opts     postgresttest.Options
		declared Capabilities
		fail     bool
		expected Capabilities
		requests int
	}{
		{
			name:     "full schema",
			opts:     postgresttest.Options{},
			expected: Capabilities{ActiveFlag: CapabilityPresent, ActiveView: CapabilityPresent},
			requests: 2,
		},
		{
			name:     "bare table",
			opts:     postgresttest.Options{NoActiveFlag: true, NoActiveView: true},
			expected: Capabilities{ActiveFlag: CapabilityAbsent, ActiveView: CapabilityAbsent},
			requests: 2,
		},
		{
			name:     "declared values are not probed",
			opts:     postgresttest.Options{NoActiveFlag: true},
			declared: Capabilities{ActiveFlag: CapabilityPresent, ActiveView: CapabilityAbsent},
			expected: Capabilities{ActiveFlag: CapabilityPresent, ActiveView: CapabilityAbsent},
			requests: 0,
		},
		{
			name:     "unrelated failure stays unknown",
			opts:     postgresttest.Options{},
			fail:     true,
			expected: Capabilities{ActiveFlag: CapabilityUnknown, ActiveView: CapabilityPresent},
			requests: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			fake := postgresttest.NewServer(t, tc.opts)
			client, err := postgrest.New(fake.URL, fake.Key(), postgrest.WithLogger(logger.Discard()))
			require.NoError(t, err)
			if tc.fail {
				fake.FailNext(http.MethodGet, "products", http.StatusInternalServerError, "database is starting up")
			}

			// when
			caps := Probe(context.Background(), client, tc.declared, DefaultTable, DefaultActiveView, logger.Discard())

			// then
			assert.Equal(t, tc.expected, caps)
			requests := fake.Requests()
			require.Len(t, requests, tc.requests)
			for _, r := range requests {
				assert.Equal(t, "0", r.Query.Get("limit"))
			}
		})
	}
}
