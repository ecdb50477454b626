// Package files discovers rental data files on disk.
//
// The CLI uses it to pick a data file when none is named:
//
//	discovery := files.NewDiscovery(paths.DataDir)
//	latest, err := discovery.LatestRentalFile("")
//	if err != nil {
//	    return err
//	}
//	info, err := datasets.LoadFile(ctx, latest.Path, domain.SourceCLI)
package files
