//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/hanko-vouchers/internal/domain"
	"finitefield.org/hanko-vouchers/internal/platform/config"
	pfirestore "finitefield.org/hanko-vouchers/internal/platform/firestore"
	"finitefield.org/hanko-vouchers/internal/repositories"
	firestorerepo "finitefield.org/hanko-vouchers/internal/repositories/firestore"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

func TestVoucherRepositoriesAgainstEmulator(t *testing.T) {
	provider := startProvider(t)
	registry, err := firestorerepo.NewRegistry(provider, config.StoreConfig{
		VouchersCollection: "vouchers_it",
		UsagesCollection:   "voucher_usages_it",
	}, pfirestore.TxOptions(config.FirestoreConfig{TxAttempts: 3, TxTimeout: 10 * time.Second})...)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	now := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)
	limit := 100
	voucher := domain.Voucher{
		ID:               "v-1",
		Code:             "SPRING",
		Type:             domain.VoucherTypePercentage,
		Value:            1500,
		Currency:         "MYR",
		Status:           domain.VoucherStatusActive,
		UsageLimit:       &limit,
		TargetDefinition: map[string]any{"scope": "items", "phase": "item_discount", "application": "per_item"},
		Metadata:         map[string]any{"target_definition": map[string]any{"scope": "cart"}},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	vouchers := registry.Vouchers()
	require.NoError(t, vouchers.Insert(ctx, voucher))

	err = vouchers.Insert(ctx, voucher)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsConflict())

	voucher.Metadata = nil
	voucher.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, vouchers.Update(ctx, voucher))

	stored, err := vouchers.FindByID(ctx, "v-1")
	require.NoError(t, err)
	require.Nil(t, stored.Metadata)
	require.Equal(t, "items", stored.TargetDefinition["scope"])
	require.Equal(t, 100, *stored.UsageLimit)

	err = vouchers.Update(ctx, domain.Voucher{ID: "missing"})
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsNotFound())

	listed, err := vouchers.List(ctx, domain.VoucherListFilter{Status: domain.VoucherStatusActive})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	usages, ok := registry.VoucherUsages().(*firestorerepo.VoucherUsageRepository)
	require.True(t, ok)
	for i, channel := range []domain.VoucherUsageChannel{domain.VoucherUsageChannelManual, domain.VoucherUsageChannelAPI} {
		require.NoError(t, usages.Record(ctx, domain.VoucherUsage{
			ID:        fmt.Sprintf("u-%d", i),
			VoucherID: "v-1",
			Channel:   channel,
			UsedAt:    now.Add(time.Duration(i) * time.Minute),
		}))
	}
	history, err := usages.List(ctx, domain.VoucherUsageFilter{VoucherID: "v-1"})
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "u-1", history[0].ID)

	report, err := registry.Health().Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusOK, report.Status)
}

func startProvider(t *testing.T) *pfirestore.Provider {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })
	waitForEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(config.FirestoreConfig{ProjectID: "test-project", EmulatorHost: endpoint})
	t.Cleanup(func() { _ = provider.Close(context.Background()) })
	return provider
}

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	out, err := exec.Command("docker",
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	).CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	return id
}

func stopContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, "docker", "stop", id).Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		lastErr = err
		time.Sleep(250 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for endpoint")
	}
	t.Fatalf("emulator did not become ready: %v", lastErr)
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("docker daemon unavailable: " + err.Error())
	}
}
