package system_test

import (
	"bytes"
	"context"
	"dashboard-bootstrap/internal/system"
	"dashboard-bootstrap/internal/system/systemtest"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageManagerSync(t *testing.T) {
	runner := systemtest.NewFakeRunner()
	pm, err := system.NewPackageManager(runner, "yum")
	require.NoError(t, err)

	require.NoError(t, pm.Sync(context.Background(), []string{"python3", "python3-pip", "git", "aws-cli"}))
	assert.Equal(t, []string{
		"yum update -y",
		"yum install -y python3 python3-pip git aws-cli",
	}, runner.Commands())
}

func TestPackageManagerApt(t *testing.T) {
	runner := systemtest.NewFakeRunner()
	pm, err := system.NewPackageManager(runner, "apt-get")
	require.NoError(t, err)

	require.NoError(t, pm.Sync(context.Background(), []string{"git"}))
	recorded := runner.Recorded()
	require.Len(t, recorded, 2)
	assert.Equal(t, "apt-get update", recorded[0].String())
	assert.Contains(t, recorded[1].Env, "DEBIAN_FRONTEND=noninteractive")
}

func TestPackageManagerFailureStopsInstall(t *testing.T) {
	runner := systemtest.NewFakeRunner().FailOn("yum update", errors.New("mirror unreachable"))
	pm, err := system.NewPackageManager(runner, "yum")
	require.NoError(t, err)

	err = pm.Sync(context.Background(), []string{"git"})
	assert.ErrorContains(t, err, "mirror unreachable")
	assert.Equal(t, []string{"yum update -y"}, runner.Commands())
}

func TestUnsupportedPackageManager(t *testing.T) {
	_, err := system.NewPackageManager(systemtest.NewFakeRunner(), "pacman")
	assert.Error(t, err)
}

func TestExecRunnerStreamsOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	var out bytes.Buffer
	runner := system.NewExecRunner(&out, &out)

	require.NoError(t, runner.Run(context.Background(), system.Cmd("sh", "-c", "echo hello; echo oops >&2")))
	assert.Contains(t, out.String(), "hello")
	assert.Contains(t, out.String(), "oops")

	err := runner.Run(context.Background(), system.Cmd("sh", "-c", "exit 3"))
	require.Error(t, err)
	assert.Equal(t, 3, system.ExitCode(err))
	assert.Equal(t, -1, system.ExitCode(errors.New("other")))
}

func TestCommandBuilders(t *testing.T) {
	cmd := system.Cmd("pip", "install", "x==1").InDir("/app").WithEnv("A=1")
	assert.Equal(t, "pip install x==1", cmd.String())
	assert.Equal(t, "/app", cmd.Dir)
	assert.Equal(t, []string{"A=1"}, cmd.Env)
}
