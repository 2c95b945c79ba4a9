/*
Package cli provides command-line utilities shared by the minos command.

Output Formatting:

Command results print as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Evidence exports use the dedicated exporters in pkg/evidence/export; the
cli formatters only cover command result display.

Progress Reporting:

For long-running operations such as bulk evidence export:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(totalRecords)
	for i, record := range records {
		// Do work
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
