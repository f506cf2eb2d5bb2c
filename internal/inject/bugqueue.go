package inject

import "github.com/concuject/concuject/internal/bugmodel"

// QueueBug renders every site a Bug touched and queues it on injector,
// wiring each CodeSite's ResultLineGetter so Bug.ResolveOrderLines can
// resolve post-commit line numbers once Commit has run.
func QueueBug(injector *Injector, bug *bugmodel.Bug) {
	bug.IterSites(func(fl bugmodel.FileLine, site *bugmodel.CodeSite) {
		codes := make([]string, len(site.Codes))
		for i, lp := range site.Codes {
			codes[i] = lp.Code.Render()
		}
		getter := injector.AddSite(fl, codes)
		site.SetResultLineGetter(getter)
	})
}
