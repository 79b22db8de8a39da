package pyenv_test

import (
	"context"
	"dashboard-bootstrap/internal/pyenv"
	"dashboard-bootstrap/internal/system"
	"dashboard-bootstrap/internal/system/systemtest"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePin(t *testing.T) {
	pin, err := pyenv.ParsePin("streamlit==1.32.0")
	require.NoError(t, err)
	assert.Equal(t, pyenv.Pin{Name: "streamlit", Version: "1.32.0"}, pin)
	assert.Equal(t, "streamlit==1.32.0", pin.String())

	pin, err = pyenv.ParsePin(" uvicorn[standard]==0.29.0 ")
	require.NoError(t, err)
	assert.Equal(t, "uvicorn[standard]", pin.Name)

	for _, bad := range []string{"streamlit", "streamlit>=1.0", "streamlit===1.0", "==1.0", "streamlit==", "stream lit==1.0"} {
		_, err := pyenv.ParsePin(bad)
		assert.ErrorIs(t, err, pyenv.ErrInvalidPin, bad)
	}
}

func TestParsePinsRejectsDuplicates(t *testing.T) {
	_, err := pyenv.ParsePins([]string{"pandas==2.2.1", "Pandas==2.0.0"})
	assert.ErrorIs(t, err, pyenv.ErrInvalidPin)
}

func fakeVenv(dir string) func(system.Command) {
	return func(system.Command) {
		_ = os.MkdirAll(dir, 0755)
		_ = os.WriteFile(filepath.Join(dir, "pyvenv.cfg"), []byte("home = /usr/bin\n"), 0644)
	}
}

func TestCreateAndInstall(t *testing.T) {
	appDir := t.TempDir()
	venvDir := filepath.Join(appDir, "venv")
	runner := systemtest.NewFakeRunner().OnRun("python3 -m venv", fakeVenv(venvDir))

	env := pyenv.NewEnv(runner, "python3", venvDir, appDir)
	require.NoError(t, env.Create(context.Background()))
	changed, err := env.Install(context.Background(), []string{"streamlit==1.32.0", "pandas==2.2.1"})
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, []string{
		"python3 -m venv " + venvDir,
		venvDir + "/bin/pip install --upgrade pip",
		venvDir + "/bin/pip install --no-input streamlit==1.32.0 pandas==2.2.1",
	}, runner.Commands())

	for _, cmd := range runner.Recorded() {
		assert.Equal(t, appDir, cmd.Dir)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	appDir := t.TempDir()
	venvDir := filepath.Join(appDir, "venv")
	fakeVenv(venvDir)(system.Command{})

	runner := systemtest.NewFakeRunner()
	env := pyenv.NewEnv(runner, "python3", venvDir, appDir)
	require.NoError(t, env.Create(context.Background()))
	assert.Empty(t, runner.Commands())
}

func TestInstallRejectsBadPinsBeforeRunning(t *testing.T) {
	appDir := t.TempDir()
	venvDir := filepath.Join(appDir, "venv")
	fakeVenv(venvDir)(system.Command{})

	runner := systemtest.NewFakeRunner()
	env := pyenv.NewEnv(runner, "python3", venvDir, appDir)

	_, err := env.Install(context.Background(), []string{"streamlit==1.32.0", "pandas"})
	assert.ErrorIs(t, err, pyenv.ErrInvalidPin)
	assert.Empty(t, runner.Commands())
}

func TestInstallFailsLoudly(t *testing.T) {
	appDir := t.TempDir()
	venvDir := filepath.Join(appDir, "venv")
	fakeVenv(venvDir)(system.Command{})

	runner := systemtest.NewFakeRunner().FailOn(venvDir+"/bin/pip install --no-input", errors.New("No matching distribution found for pandas==99.0"))
	env := pyenv.NewEnv(runner, "python3", venvDir, appDir)

	_, err := env.Install(context.Background(), []string{"pandas==99.0"})
	assert.ErrorContains(t, err, "No matching distribution")
	assert.NoFileExists(t, filepath.Join(venvDir, "bootstrap-requirements.txt"))
}

func TestInstallReportsChangedPins(t *testing.T) {
	appDir := t.TempDir()
	venvDir := filepath.Join(appDir, "venv")
	fakeVenv(venvDir)(system.Command{})

	runner := systemtest.NewFakeRunner()
	env := pyenv.NewEnv(runner, "python3", venvDir, appDir)
	ctx := context.Background()

	changed, err := env.Install(ctx, []string{"streamlit==1.32.0", "pandas==2.2.1"})
	require.NoError(t, err)
	assert.True(t, changed, "first install")

	changed, err = env.Install(ctx, []string{"streamlit==1.32.0", "pandas==2.2.1"})
	require.NoError(t, err)
	assert.False(t, changed, "same pins")

	changed, err = env.Install(ctx, []string{"streamlit==1.33.0", "pandas==2.2.1"})
	require.NoError(t, err)
	assert.True(t, changed, "bumped pin")

	// pip still runs every time so a broken environment gets repaired.
	assert.Len(t, runner.Commands(), 6)
}

func TestInstallRequiresVenv(t *testing.T) {
	appDir := t.TempDir()
	env := pyenv.NewEnv(systemtest.NewFakeRunner(), "python3", filepath.Join(appDir, "venv"), appDir)
	_, err := env.Install(context.Background(), []string{"pandas==2.2.1"})
	assert.Error(t, err)
}
