package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-f string   sqlite cache file path
//	-x string   export directory
//	-i int      online check interval, seconds
//	-r int      resync threshold, minutes
//	-o          self-provision remote tables on startup
//	-k          upload export snapshots to S3
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-f", "-x", "-i", "-r", "-o", "-k", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run the HTTP API")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CacheDSN, "f", config.CacheDSN, "sqlite cache file")
	fs.StringVar(&config.ExportDir, "x", config.ExportDir, "export directory")

	onlineCheckInterval := fs.Int("i", int(config.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	resyncAfter := fs.Int("r", int(config.ResyncAfter.Minutes()), "resync threshold (in minutes)")

	fs.BoolVar(&config.SelfProvision, "o", config.SelfProvision, "self-provision remote tables on startup")
	fs.BoolVar(&config.S3Backup, "k", config.S3Backup, "upload export snapshots to S3")

	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	config.ResyncAfter = time.Duration(*resyncAfter) * time.Minute
}
