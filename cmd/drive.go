package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/worklog/internal/gdrive"
)

var (
	driveClientID     string
	driveClientSecret string
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Back up to and restore from Google Drive",
}

var driveLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Google using the device code flow",
	Long: `Authenticate with Google using the device code flow.

Create an OAuth client of type "TVs and Limited Input devices" in the Google
Cloud console and pass its id and secret on the first login; they are kept in
the worklog settings for later runs.`,
	Args: cobra.NoArgs,
	RunE: runDriveLogin,
}

var drivePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload a full backup to Google Drive",
	Args:  cobra.NoArgs,
	RunE:  runDrivePush,
}

var drivePullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace local records with the backup stored in Google Drive",
	Args:  cobra.NoArgs,
	RunE:  runDrivePull,
}

func init() {
	driveLoginCmd.Flags().StringVar(&driveClientID, "client-id", "", "OAuth client ID")
	driveLoginCmd.Flags().StringVar(&driveClientSecret, "client-secret", "", "OAuth client secret")
	driveCmd.AddCommand(driveLoginCmd)
	driveCmd.AddCommand(drivePushCmd)
	driveCmd.AddCommand(drivePullCmd)
}

func runDriveLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	auth := gdrive.NewAuth(sess.ledger, gdrive.WithAuthLogger(sess.log))
	if driveClientID != "" {
		creds := gdrive.Credentials{ClientID: driveClientID, ClientSecret: driveClientSecret}
		if err := auth.SaveCredentials(ctx, creds); err != nil {
			return err
		}
	}
	if err := auth.Login(ctx, cmd.OutOrStdout()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged in to Google Drive.")
	return nil
}

func driveClient(cmd *cobra.Command) (*gdrive.Client, error) {
	auth := gdrive.NewAuth(sess.ledger, gdrive.WithAuthLogger(sess.log))
	hc, err := auth.HTTPClient(cmd.Context())
	if err != nil {
		return nil, err
	}
	return gdrive.NewClient(hc, gdrive.WithLogger(sess.log)), nil
}

func runDrivePush(cmd *cobra.Command, args []string) error {
	c, err := driveClient(cmd)
	if err != nil {
		return err
	}
	id, err := gdrive.Push(cmd.Context(), c, sess.ledger, sess.cfg.Drive.FileName)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded backup to Drive file %s (%s)\n", sess.cfg.Drive.FileName, id)
	return nil
}

func runDrivePull(cmd *cobra.Command, args []string) error {
	c, err := driveClient(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	b, err := gdrive.Pull(ctx, c, sess.ledger, sess.cfg.Drive.FileName)
	if err != nil {
		return err
	}
	if _, err := sess.ledger.PruneRetention(ctx); err != nil {
		return err
	}
	afterChange(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %d records from backup of %s\n",
		len(b.Records), b.Timestamp.Local().Format("2006-01-02 15:04"))
	return nil
}
