// Package refract provides the reactive synchronization layer of an
// incremental, multi-environment bundler: subscriptions that turn pull-based,
// memoized computations into push notification streams, and transitions that
// re-interpret a module's build context per graph edge.
//
// # Subscriptions
//
// A Subscription bridges one rooted computation to a long-lived consumer.
// Each delivery cycle evaluates the computation under strong consistency,
// converts the snapshot to consumer-visible values, and delivers them in
// order; the subscription then suspends until the computation is
// invalidated and repeats:
//
//	Evaluate (consistent) → Convert → Deliver → Await invalidation
//
// Delivery is coalescing: rapid upstream changes collapse into
// one cycle carrying the latest strongly consistent value, and intermediate
// states may never be observed. Evaluation and conversion errors are
// delivered to the consumer as error notifications; the subscription stays
// alive and the next invalidation re-attempts the cycle.
//
// # Projects
//
// A Project is the root of one build session. It validates its chroot-style
// path boundary (the project path must be nested under the root path), owns
// the session's computation engine, and derives per-session computations
// such as the entrypoints scan. Entrypoint snapshots map pathnames to a
// closed set of route variants; colliding source files surface as conflict
// routes. With watching enabled, filesystem changes feed invalidations into
// the engine through fsnotify.
//
// # Transitions
//
// A Transition is a stateless policy attached to module graph edges. When
// traversal crosses a tagged edge, the transition substitutes the
// compile-time info, processing rules, and resolution rules used
// downstream, and may wrap the reached module, for example binding it to
// the client chunking context so a server-reachable module is also emitted
// into the client artifact group. Context lives on edges, not modules: one
// source module imported by both server and client code is compiled under
// both environments within a single build, without duplicating the graph.
//
// # Example
//
//	project, err := refract.NewProject(ctx, refract.ProjectOptions{
//	    RootPath:    "/repo",
//	    ProjectPath: "/repo/app",
//	    Watch:       true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer project.Close(ctx)
//
//	sub, err := project.EntrypointsSubscribe(ctx,
//	    refract.EntrypointsOptions{PageExtensions: []string{"tsx", "ts"}},
//	    func(ctx context.Context, n refract.Notification[refract.EntrypointsRecord]) error {
//	        if n.Err != nil {
//	            log.Printf("build error: %v", n.Err)
//	            return nil
//	        }
//	        return apply(n.Value)
//	    },
//	)
//	if err != nil {
//	    log.Printf("initial entrypoints failed: %v", err)
//	}
//	defer sub.Cancel()
package refract
