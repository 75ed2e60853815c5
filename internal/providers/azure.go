package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/pkg/types"
)

// azureMaterial is the decrypted shape of an Azure credential's extra
// JSON blob
type azureMaterial struct {
	TenantID       string `json:"tenant_id"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	SubscriptionID string `json:"subscription_id"`
	ResourceGroup  string `json:"resource_group"`
}

func (m azureMaterial) complete() bool {
	return m.TenantID != "" && m.ClientID != "" && m.ClientSecret != "" && m.SubscriptionID != ""
}

// azureVM is one enumerated virtual machine
type azureVM struct {
	resourceID string
	name       string
	location   string
}

// azureClient is the slice of the Azure SDK the adapter uses
type azureClient interface {
	ListVMs(ctx context.Context, max int) ([]azureVM, error)
	LatestCPU(ctx context.Context, resourceID string, start, end time.Time) (float64, error)
}

// azureClientFactory builds a client from decrypted material
type azureClientFactory func(m azureMaterial) (azureClient, error)

// AzureAdapter retrieves VM utilization metrics via Azure Monitor
type AzureAdapter struct {
	opts      Options
	newClient azureClientFactory
	log       *zap.Logger
}

// NewAzureAdapter creates an Azure adapter backed by the real SDK
func NewAzureAdapter(opts Options, log *zap.Logger) *AzureAdapter {
	return &AzureAdapter{
		opts:      opts,
		newClient: newAzureClient,
		log:       log,
	}
}

// Provider returns the provider identifier
func (a *AzureAdapter) Provider() types.Provider {
	return types.ProviderAzure
}

// Available reports whether the adapter can serve fetches
func (a *AzureAdapter) Available() bool {
	return a.newClient != nil
}

// Fetch enumerates the subscription's VMs up to the resource bound and
// samples Percentage CPU for each over the lookback window. A failure
// on one VM is logged and skipped; a failure listing VMs is a
// top-level auth failure.
func (a *AzureAdapter) Fetch(ctx context.Context, m Material) ([]types.MetricSample, error) {
	if m.ExtraJSON == "" {
		return nil, nil
	}

	var mat azureMaterial
	if err := json.Unmarshal([]byte(m.ExtraJSON), &mat); err != nil {
		return nil, &AuthError{Provider: types.ProviderAzure, Err: fmt.Errorf("parse material: %w", err)}
	}
	if !mat.complete() {
		return nil, nil
	}

	client, err := a.newClient(mat)
	if err != nil {
		return nil, &AuthError{Provider: types.ProviderAzure, Err: err}
	}

	vms, err := client.ListVMs(ctx, a.opts.MaxResources)
	if err != nil {
		return nil, &AuthError{Provider: types.ProviderAzure, Err: err}
	}

	end := time.Now().UTC()
	start := end.Add(-a.opts.Lookback)

	var samples []types.MetricSample
	for _, vm := range vms {
		if err := a.opts.wait(ctx); err != nil {
			return samples, nil
		}

		cpu, err := client.LatestCPU(ctx, vm.resourceID, start, end)
		if err != nil {
			a.log.Warn("azure vm metrics failed",
				zap.String("vm", vm.name), zap.Error(err))
			continue
		}

		samples = append(samples, types.MetricSample{
			ID:           uuid.New().String(),
			Provider:     types.ProviderAzure,
			ResourceID:   vm.resourceID,
			ResourceName: vm.name,
			Timestamp:    end,
			CPUUsage:     ClampPercent(cpu),
			ResourceKind: "vm",
			Region:       vm.location,
		})
	}

	return samples, nil
}

// armClient adapts the Azure SDK to azureClient
type armClient struct {
	vms     *armcompute.VirtualMachinesClient
	metrics *armmonitor.MetricsClient
}

func (c *armClient) ListVMs(ctx context.Context, max int) ([]azureVM, error) {
	var vms []azureVM

	pager := c.vms.NewListAllPager(nil)
	for pager.More() && len(vms) < max {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, vm := range page.Value {
			if vm.ID == nil || vm.Name == nil {
				continue
			}
			entry := azureVM{resourceID: *vm.ID, name: *vm.Name}
			if vm.Location != nil {
				entry.location = *vm.Location
			}
			vms = append(vms, entry)
			if len(vms) >= max {
				break
			}
		}
	}

	return vms, nil
}

func (c *armClient) LatestCPU(ctx context.Context, resourceID string, start, end time.Time) (float64, error) {
	resp, err := c.metrics.List(ctx, resourceID, &armmonitor.MetricsClientListOptions{
		Timespan:    to.Ptr(fmt.Sprintf("%s/%s", start.Format(time.RFC3339), end.Format(time.RFC3339))),
		Interval:    to.Ptr("PT5M"),
		Metricnames: to.Ptr("Percentage CPU"),
		Aggregation: to.Ptr("Average"),
	})
	if err != nil {
		return 0, err
	}

	// Take the last datapoint of the first timeseries, the most recent
	// value within the window
	for _, metric := range resp.Value {
		for _, ts := range metric.Timeseries {
			for i := len(ts.Data) - 1; i >= 0; i-- {
				if ts.Data[i].Average != nil {
					return *ts.Data[i].Average, nil
				}
			}
		}
	}
	return 0, nil
}

// newAzureClient builds real SDK clients from a client secret credential
func newAzureClient(m azureMaterial) (azureClient, error) {
	cred, err := azidentity.NewClientSecretCredential(m.TenantID, m.ClientID, m.ClientSecret, nil)
	if err != nil {
		return nil, err
	}

	vms, err := armcompute.NewVirtualMachinesClient(m.SubscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}
	metrics, err := armmonitor.NewMetricsClient(m.SubscriptionID, cred, nil)
	if err != nil {
		return nil, err
	}

	return &armClient{vms: vms, metrics: metrics}, nil
}
