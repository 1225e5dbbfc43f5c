package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/powerups/internal/inspect"
)

const levelScene = `
root:
  name: Root
  children:
    - name: World
      type: Node2D
      children:
        - name: Player
          type: CharacterBody2D
          unique: true
          children:
            - name: Sprite
              type: Sprite2D
        - name: Camera
          type: Camera2D
          unique: true
types:
  - name: Sprite2D
    extends: [Node2D]
capabilities:
  - type: Sprite2D
    provides: [Drawable]
subjects:
  - node: "%Player"
    members:
      - name: _sprite
        type: Sprite2D
        path: Sprite
      - name: Art
        type: Drawable
        path: Sprite
      - name: _camera
        type: Camera2D
        wired: true
      - name: Score
        type: int
        read_only: true
`

const brokenScene = `
root:
  name: Root
  children:
    - name: Camera
      type: Camera2D
      unique: true
subjects:
  - node: Camera
    members:
      - name: _camra
        type: Camera2D
        wired: true
`

func writeScene(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "level.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--no-color"))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCheckCommand(t *testing.T) {
	t.Run("wires every subject", func(t *testing.T) {
		out, _, err := execute(t, "check", writeScene(t, levelScene))
		require.NoError(t, err)

		assert.Contains(t, out, "✓ /Root/World/Player (wired)")
		assert.Contains(t, out, "_sprite  Sprite")
		assert.Contains(t, out, "/Root/World/Player/Sprite as Drawable")
		assert.Contains(t, out, "%Camera  /Root/World/Camera")
		assert.NotContains(t, out, "Score")
	})

	t.Run("runs the lifecycle through exit", func(t *testing.T) {
		out, _, err := execute(t, "check", writeScene(t, levelScene), "--through", "exiting_graph")
		require.NoError(t, err)
		assert.Contains(t, out, "(detached)")
	})

	t.Run("reports missing targets with suggestions", func(t *testing.T) {
		_, errOut, err := execute(t, "check", writeScene(t, brokenScene))
		require.Error(t, err)
		assert.Equal(t, "1 subject(s) failed to wire", err.Error())
		assert.Contains(t, errOut, "MISSING TARGET: CAMERA._CAMRA")
		assert.Contains(t, errOut, "Did you mean: %Camera")
	})

	t.Run("reports unreadable scenes", func(t *testing.T) {
		_, errOut, err := execute(t, "check", filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, errOut, "SCENE ERROR")
	})

	t.Run("warns about scenes without subjects", func(t *testing.T) {
		out, _, err := execute(t, "check", writeScene(t, "root:\n  name: Root\n"))
		require.NoError(t, err)
		assert.Contains(t, out, "declares no subjects")
	})

	t.Run("rejects unknown notifications", func(t *testing.T) {
		_, _, err := execute(t, "check", writeScene(t, levelScene), "--through", "process")
		assert.Error(t, err)
	})

	t.Run("requires a scene", func(t *testing.T) {
		_, _, err := execute(t, "check")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--all")
	})
}

// sceneDir writes scenes into a fresh directory along with a config file
// pointing scene.dir at it, and returns the config path.
func sceneDir(t *testing.T, scenes map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range scenes {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	cfgPath := filepath.Join(dir, "powerups.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("scene:\n  dir: "+dir+"\n"), 0644))
	return cfgPath
}

func TestCheckCommand_All(t *testing.T) {
	t.Run("checks every scene in the scene directory", func(t *testing.T) {
		cfgPath := sceneDir(t, map[string]string{
			"level.yaml": levelScene,
			"menu.yml":   "root:\n  name: Menu\n",
		})

		out, _, err := execute(t, "--config", cfgPath, "check", "--all")
		require.NoError(t, err)
		assert.Contains(t, out, "/Root/World/Player (wired)")
		assert.Contains(t, out, "menu.yml declares no subjects")
		assert.NotContains(t, out, "powerups.yml")
	})

	t.Run("fails without scenes", func(t *testing.T) {
		cfgPath := sceneDir(t, nil)

		_, _, err := execute(t, "--config", cfgPath, "check", "--all")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no scene files found")
	})
}

func TestCheckCommand_WatchStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"check", writeScene(t, levelScene), "--watch", "--no-color"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "/Root/World/Player (wired)")
	assert.Contains(t, out.String(), "watching 1 scene file(s)")
}

func TestDeriveCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"single member", []string{"derive", "_my_ref"}, []string{"%MyRef\n"}},
		{"bare", []string{"derive", "--bare", "player_sprite"}, []string{"PlayerSprite\n"}},
		{"several members", []string{"derive", "_a", "b_c"}, []string{"_a      %A", "b_c     %BC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestDescribeCommand(t *testing.T) {
	path := writeScene(t, levelScene)

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, "describe", path)
		require.NoError(t, err)

		var got []inspect.SubjectDescription
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "/Root/World/Player", got[0].Node)
		assert.Equal(t, "CharacterBody2D", got[0].Type)
		require.Len(t, got[0].Members, 4)
		assert.Equal(t, "Sprite", got[0].Members[0].Key)
		assert.Equal(t, "%Camera", got[0].Members[2].Key)
		assert.False(t, got[0].Members[3].Wired)
		assert.False(t, got[0].Members[3].Mutable)
	})

	t.Run("table", func(t *testing.T) {
		out, _, err := execute(t, "describe", path, "--format", "table")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 6)
		assert.Contains(t, lines[0], "NODE")
		assert.Contains(t, lines[5], "Score")
		assert.True(t, strings.HasSuffix(lines[5], "r       -"), lines[5])
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute(t, "describe", path, "--format", "xml")
		assert.Error(t, err)
	})
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, "init", dir, "--level", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "created "+filepath.Join(dir, "powerups.yml"))

	data, err := os.ReadFile(filepath.Join(dir, "powerups.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "level: info")
	assert.Contains(t, string(data), "dir: scenes")

	scenePath := filepath.Join(dir, "scenes", "example.yaml")
	out, _, err = execute(t, "check", scenePath)
	require.NoError(t, err)
	assert.Contains(t, out, "/Main/Player (wired)")

	_, errOut, err := execute(t, "init", dir)
	require.Error(t, err, "existing config is kept without --force")
	assert.Contains(t, errOut, "CONFIGURATION ERROR")

	out, _, err = execute(t, "init", dir, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "created "+scenePath)

	_, _, err = execute(t, "init", dir, "--force", "--level", "loud")
	assert.Error(t, err)
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "powerups.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: nope\n"), 0644))

	_, errOut, err := execute(t, "--config", cfgPath, "derive", "_x")
	require.Error(t, err)
	assert.Contains(t, errOut, "CONFIGURATION ERROR")

	_, _, err = execute(t, "--log-level", "debug", "derive", "_x")
	assert.NoError(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Run("requires a secret", func(t *testing.T) {
		_, _, err := execute(t, "token")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "serve.secret")
	})

	t.Run("issues a valid token", func(t *testing.T) {
		t.Setenv("POWERUPS_SERVE_SECRET", "s3cret")

		out, _, err := execute(t, "token", "ci")
		require.NoError(t, err)

		auth, err := inspect.NewAuth("s3cret", time.Hour)
		require.NoError(t, err)
		claims, err := auth.Validate(strings.TrimSpace(out))
		require.NoError(t, err)
		assert.Equal(t, "ci", claims.Subject)
	})

	t.Run("hashes a password", func(t *testing.T) {
		out, _, err := execute(t, "token", "--hash-password", "--password", "hunter2")
		require.NoError(t, err)
		assert.True(t, inspect.CheckPassword("hunter2", strings.TrimSpace(out)))
	})
}

func TestServeCommand_StopsWithContext(t *testing.T) {
	cfgPath := sceneDir(t, map[string]string{"level.yaml": levelScene})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "serve", "--addr", "127.0.0.1:0", "--no-color"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "serving ")
	assert.Contains(t, out.String(), "http://127.0.0.1:")
}

func TestServeCommand_RejectsBadInput(t *testing.T) {
	cfgPath := sceneDir(t, nil)

	_, _, err := execute(t, "--config", cfgPath, "serve", "--through", "process")
	assert.Error(t, err)

	_, _, err = execute(t, "--config", cfgPath, "serve", "--addr", "not an address")
	assert.Error(t, err)
}
