// GoStego: hide text in audio, images and video.
//
// Usage:
//
//	gostego encode -i <carrier> -m <text> [-k <key>] [-o <file>]
//	gostego decode -i <carrier> [-k <key>]
//	gostego capacity <file>...
//	gostego cover -o <file> [options]
//	gostego serve [--port 8080]
//	gostego init
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/xob0t/GoStego/clients/server"
	"github.com/xob0t/GoStego/internal/config"
	"github.com/xob0t/GoStego/pkg/bitframe"
	"github.com/xob0t/GoStego/pkg/cover"
	"github.com/xob0t/GoStego/pkg/crypt"
	"github.com/xob0t/GoStego/pkg/stego"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(ctx, os.Args[2:])
	case "decode":
		err = runDecode(ctx, os.Args[2:])
	case "capacity":
		err = runCapacity(ctx, os.Args[2:])
	case "cover":
		err = runCover(os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		stop()
		fatal(err)
	}
}

// globals are accepted by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	legacy     bool
}

func (g *globals) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "gostego.yaml", "Config file (missing file uses defaults)")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&g.legacy, "legacy", false, "Legacy mode: ECB and terminator framing for audio")
}

func (g *globals) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.legacy {
		cfg.Codec.Mode = "legacy"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log := cfg.Logger()
	slog.SetDefault(log)
	return cfg, log, nil
}

func newCodec(cfg *config.Config, log *slog.Logger, mode stego.Mode) (*stego.Codec, error) {
	opts := []stego.Option{
		stego.WithLogger(log),
		stego.WithMode(mode),
		stego.WithTempDir(cfg.Codec.TempDir),
		stego.WithParallel(cfg.Capacity.Parallel),
	}
	if cfg.Codec.Profile != "" {
		p, err := crypt.Lookup(cfg.Codec.Profile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, stego.WithProfile(p))
	}
	if cfg.Codec.Framing != "" {
		p, err := bitframe.Lookup(cfg.Codec.Framing)
		if err != nil {
			return nil, err
		}
		opts = append(opts, stego.WithFraming(p))
	}
	return stego.New(opts...), nil
}

func setup(g *globals) (*stego.Codec, error) {
	cfg, log, err := g.load()
	if err != nil {
		return nil, err
	}
	return newCodec(cfg, log, stego.ParseMode(cfg.Codec.Mode))
}

// keyFlag falls back to GOSTEGO_KEY so keys stay out of shell history.
func keyFlag(key string) string {
	if key != "" {
		return key
	}
	return os.Getenv("GOSTEGO_KEY")
}

func runEncode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	var (
		g           globals
		input       string
		output      string
		message     string
		messageFile string
		key         string
		appendMsg   bool
	)
	g.register(fs)
	fs.StringVar(&input, "i", "", "Carrier file")
	fs.StringVar(&input, "input", "", "Carrier file")
	fs.StringVar(&output, "o", "", "Output file (default: <carrier>_stego)")
	fs.StringVar(&output, "output", "", "Output file (default: <carrier>_stego)")
	fs.StringVar(&message, "m", "", "Message text")
	fs.StringVar(&message, "message", "", "Message text")
	fs.StringVar(&messageFile, "f", "", "Read the message from a file ('-' for stdin)")
	fs.StringVar(&key, "k", "", "Encryption key (or $GOSTEGO_KEY)")
	fs.StringVar(&key, "key", "", "Encryption key (or $GOSTEGO_KEY)")
	fs.BoolVar(&appendMsg, "append", false, "Append to the message already in the output (video only)")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}

	if input == "" {
		return errors.New("carrier file is required (-i)")
	}
	if messageFile != "" {
		text, err := readMessage(messageFile)
		if err != nil {
			return err
		}
		message = text
	}
	if message == "" {
		return errors.New("message is required (-m or -f)")
	}

	codec, err := setup(&g)
	if err != nil {
		return err
	}
	res, err := codec.Encode(ctx, stego.EncodeRequest{
		Carrier: input,
		Message: message,
		Key:     keyFlag(key),
		Output:  output,
		Append:  appendMsg,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Done: %s (%s bits of %s used)\n", res.Output, humanize.Comma(res.FrameBits), humanize.Comma(res.Capacity))
	return nil
}

func readMessage(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func runDecode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var (
		g     globals
		input string
		key   string
	)
	g.register(fs)
	fs.StringVar(&input, "i", "", "Carrier file")
	fs.StringVar(&input, "input", "", "Carrier file")
	fs.StringVar(&key, "k", "", "Decryption key (or $GOSTEGO_KEY)")
	fs.StringVar(&key, "key", "", "Decryption key (or $GOSTEGO_KEY)")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" {
		return errors.New("carrier file is required (-i)")
	}

	codec, err := setup(&g)
	if err != nil {
		return err
	}
	msg, err := codec.Decode(ctx, input, keyFlag(key))
	if err != nil {
		return err
	}
	if msg == "" {
		fmt.Fprintln(os.Stderr, "No hidden message found.")
		return nil
	}
	fmt.Println(msg)
	return nil
}

func runCapacity(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("capacity", flag.ExitOnError)
	var g globals
	g.register(fs)
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("at least one carrier file is required")
	}

	codec, err := setup(&g)
	if err != nil {
		return err
	}
	reports, err := codec.CapacityAll(ctx, fs.Args())
	if err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Printf("%s\t%s\t%s bits\t%s\n",
			r.Path, r.Medium, humanize.Comma(r.Bits), humanize.Bytes(uint64(r.MessageBytes())))
	}
	return nil
}

func runCover(args []string) error {
	fs := flag.NewFlagSet("cover", flag.ExitOnError)
	var (
		output string
		cfg    cover.Config
		seed   uint64
	)
	fs.StringVar(&output, "o", "", "Output file (.png, .bmp, .tiff, .avi or .wav)")
	fs.StringVar(&output, "output", "", "Output file (.png, .bmp, .tiff, .avi or .wav)")
	fs.IntVar(&cfg.Width, "w", 640, "Width in pixels")
	fs.IntVar(&cfg.Width, "width", 640, "Width in pixels")
	fs.IntVar(&cfg.Height, "h", 480, "Height in pixels")
	fs.IntVar(&cfg.Height, "height", 480, "Height in pixels")
	fs.Float64Var(&cfg.Duration, "duration", 1, "Duration in seconds (AVI and WAV)")
	fs.IntVar(&cfg.FPS, "fps", 15, "Frame rate (AVI only)")
	fs.StringVar(&cfg.Color, "color", "random", "Background color: hex or 'random'")
	fs.StringVar(&cfg.Caption, "caption", "", "Text drawn over the image")
	fs.StringVar(&cfg.FontPath, "font", "", "TTF font for the caption")
	fs.IntVar(&cfg.Noise, "noise", 0, "Noise amplitude (0 for flat)")
	fs.BoolVar(&cfg.Lossless, "lossless", false, "Uncompressed AVI frames (embeddable)")
	fs.Uint64Var(&seed, "seed", 0, "Noise seed (0 for random)")
	fs.IntVar(&cfg.SampleRate, "rate", 44100, "Sample rate (WAV only)")
	fs.Float64Var(&cfg.Tone, "tone", 440, "Tone frequency in Hz (WAV only)")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if output == "" {
		printUsage()
		return errors.New("output file is required (-o)")
	}
	cfg.Seed = seed

	fmt.Printf("Generating: %s\n", output)
	if err := cover.Generate(output, cfg); err != nil {
		return err
	}
	if st, err := os.Stat(output); err == nil {
		fmt.Printf("Done: %s (%s)\n", output, humanize.Bytes(uint64(st.Size())))
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var (
		g    globals
		port int
	)
	g.register(fs)
	fs.IntVar(&port, "port", 0, "Port (default: from config, 8080)")
	fs.IntVar(&port, "p", 0, "Port (default: from config, 8080)")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	modern, err := newCodec(cfg, log, stego.ModeModern)
	if err != nil {
		return err
	}
	legacy, err := newCodec(cfg, log, stego.ModeLegacy)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Port:        cfg.Server.Port,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		Modern:      modern,
		Legacy:      legacy,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Run(ctx)
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var path string
	fs.StringVar(&path, "o", "gostego.yaml", "Config file to create")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`GoStego - LSB steganography for audio, images and video (Pure Go)

USAGE:
    gostego encode -i <carrier> -m <text> [options]
    gostego decode -i <carrier> [options]
    gostego capacity <file>...
    gostego cover -o <file> [options]
    gostego serve [--port 8080]
    gostego init [-o gostego.yaml]

CARRIERS:
    audio    .wav, .mp3 (written as .wav)
    image    .png, .bmp, .tiff, .jpg, .gif, .webp (written as .png unless .bmp or .tiff)
    video    .avi with DIB or MJPEG frames (written as uncompressed .avi)

ENCODE:
    -i, --input <path>     Carrier file
    -m, --message <text>   Message to hide
    -f <path>              Read the message from a file ('-' for stdin)
    -k, --key <key>        Encrypt with key (or $GOSTEGO_KEY)
    -o, --output <path>    Output file (default: <carrier>_stego)
    --append               Add to the message already in the output (video only)

DECODE:
    -i, --input <path>     Carrier file
    -k, --key <key>        Decrypt with key (or $GOSTEGO_KEY)

COVER:
    -o, --output <path>    .png, .bmp, .tiff, .avi or .wav
    -w, --width <px>       Width in pixels (default: 640)
    -h, --height <px>      Height in pixels (default: 480)
    --duration <sec>       AVI and WAV duration (default: 1)
    --fps <n>              AVI frame rate (default: 15)
    --color <hex>          Background color or 'random' (default: random)
    --caption <text>       Caption drawn over the image
    --noise <n>            Noise amplitude (default: 0)
    --lossless             Uncompressed AVI frames
    --seed <n>             Noise seed
    --rate <hz>            WAV sample rate (default: 44100)
    --tone <hz>            WAV tone frequency (default: 440)

COMMON:
    --config <path>        Config file (default: gostego.yaml)
    --log-level <level>    debug, info, warn, error
    --legacy               Legacy audio scheme (raw 16/24/32-byte key, ECB)

EXAMPLES:
    gostego cover -o cover.png --noise 8
    gostego encode -i cover.png -m "meet at noon" -k secret
    gostego decode -i cover_stego.png -k secret
    gostego encode -i clip.avi -o out.avi -m "part two" --append
    gostego capacity song.wav photo.png clip.avi
    gostego serve --port 9000
`)
}
