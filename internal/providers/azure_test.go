package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/pkg/types"
)

type fakeAzure struct {
	vms       []azureVM
	listErr   error
	cpuByVM   map[string]float64
	failingVM string
}

func (f *fakeAzure) ListVMs(ctx context.Context, max int) ([]azureVM, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.vms) > max {
		return f.vms[:max], nil
	}
	return f.vms, nil
}

func (f *fakeAzure) LatestCPU(ctx context.Context, resourceID string, start, end time.Time) (float64, error) {
	if resourceID == f.failingVM {
		return 0, errors.New("metrics unavailable")
	}
	return f.cpuByVM[resourceID], nil
}

func testAzureAdapter(factory azureClientFactory) *AzureAdapter {
	opts := DefaultOptions()
	opts.Limiter = nil
	return &AzureAdapter{opts: opts, newClient: factory, log: zap.NewNop()}
}

const azureJSON = `{
	"tenant_id": "t", "client_id": "c", "client_secret": "s",
	"subscription_id": "sub"
}`

func TestAzureAdapter_MissingCredentialFields(t *testing.T) {
	called := false
	adapter := testAzureAdapter(func(m azureMaterial) (azureClient, error) {
		called = true
		return &fakeAzure{}, nil
	})

	for _, extra := range []string{
		"",
		`{"tenant_id": "t", "client_id": "c"}`,
		`{"tenant_id": "t", "client_id": "c", "client_secret": "s"}`,
	} {
		samples, err := adapter.Fetch(context.Background(), Material{ExtraJSON: extra})
		require.NoError(t, err)
		assert.Empty(t, samples)
	}
	assert.False(t, called, "must not contact the network with incomplete material")
}

func TestAzureAdapter_FetchSamples(t *testing.T) {
	adapter := testAzureAdapter(func(m azureMaterial) (azureClient, error) {
		assert.Equal(t, "sub", m.SubscriptionID)
		return &fakeAzure{
			vms: []azureVM{
				{resourceID: "/subscriptions/sub/vm1", name: "vm1", location: "eastus"},
				{resourceID: "/subscriptions/sub/vm2", name: "vm2", location: "westeurope"},
			},
			cpuByVM: map[string]float64{
				"/subscriptions/sub/vm1": 55.5,
				"/subscriptions/sub/vm2": 12.0,
			},
		}, nil
	})

	samples, err := adapter.Fetch(context.Background(), Material{ExtraJSON: azureJSON})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, types.ProviderAzure, samples[0].Provider)
	assert.Equal(t, "vm1", samples[0].ResourceName)
	assert.Equal(t, 55.5, samples[0].CPUUsage)
	assert.Equal(t, "eastus", samples[0].Region)
	assert.Equal(t, "vm", samples[0].ResourceKind)
}

func TestAzureAdapter_PerVMFailureSkipped(t *testing.T) {
	adapter := testAzureAdapter(func(m azureMaterial) (azureClient, error) {
		return &fakeAzure{
			vms: []azureVM{
				{resourceID: "vm-ok", name: "ok"},
				{resourceID: "vm-bad", name: "bad"},
				{resourceID: "vm-ok2", name: "ok2"},
			},
			cpuByVM:   map[string]float64{"vm-ok": 10, "vm-ok2": 20},
			failingVM: "vm-bad",
		}, nil
	})

	samples, err := adapter.Fetch(context.Background(), Material{ExtraJSON: azureJSON})
	require.NoError(t, err, "a failing VM must not abort enumeration")
	require.Len(t, samples, 2)
	assert.Equal(t, "ok", samples[0].ResourceName)
	assert.Equal(t, "ok2", samples[1].ResourceName)
}

func TestAzureAdapter_ListFailure(t *testing.T) {
	adapter := testAzureAdapter(func(m azureMaterial) (azureClient, error) {
		return &fakeAzure{listErr: errors.New("403 forbidden")}, nil
	})

	samples, err := adapter.Fetch(context.Background(), Material{ExtraJSON: azureJSON})
	assert.Empty(t, samples)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, types.ProviderAzure, authErr.Provider)
}
