package framework

import "flag"

// KeepSetFlags runs load and then re-applies every flag explicitly set on
// fs, so a value given on the command line wins over whatever load wrote
// into the flag variables (e.g. a config file).
func KeepSetFlags(fs *flag.FlagSet, load func() error) error {
	set := make(map[*flag.Flag]string)
	fs.Visit(func(f *flag.Flag) {
		set[f] = f.Value.String()
	})
	if err := load(); err != nil {
		return err
	}
	var errs AggregatedError
	for f, val := range set {
		errs.Add(f.Value.Set(val))
	}
	return errs.Aggregate()
}
