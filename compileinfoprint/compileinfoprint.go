// compileinfoprint is imported for the side effect of logging the compileinfo
// to os.Stderr
package compileinfoprint

import "github.com/arsakhar/NeuroFlow/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
